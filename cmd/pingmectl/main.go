package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/matheus3301/pingme/internal/app"
	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/client"
	"github.com/matheus3301/pingme/internal/config"
	"github.com/matheus3301/pingme/internal/identity"
	"github.com/matheus3301/pingme/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	timeout := flag.Duration("timeout", 15*time.Second, "time limit for the command")
	flag.Usage = printUsage
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "token" {
		cmdToken(args[1:])
		return
	}

	var c *client.Client
	fxApp := fx.New(
		app.Module(app.Params{Profile: name, Console: true}),
		fx.Populate(&c),
		fx.NopLogger,
	)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := fxApp.Start(ctx); err != nil {
		fail(err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = fxApp.Stop(stopCtx)
	}()

	var err error
	switch args[0] {
	case "whoami":
		err = cmdWhoami(c, *jsonFlag)
	case "signin":
		err = cmdSignIn(ctx, c, *jsonFlag)
	case "signout":
		err = c.SignOut(ctx)
		if err == nil {
			fmt.Println("Signed out.")
		}
	case "users":
		err = cmdUsers(ctx, c, *jsonFlag)
	case "send":
		if len(args) < 3 {
			err = errors.New("usage: pingmectl send <uid> <text>")
			break
		}
		err = cmdSend(ctx, c, args[1], strings.Join(args[2:], " "), *jsonFlag)
	case "open":
		if len(args) != 2 {
			err = errors.New("usage: pingmectl open <uid>")
			break
		}
		err = cmdOpen(ctx, c, args[1], *jsonFlag)
	default:
		printUsage()
		err = fmt.Errorf("unknown command: %s", args[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = fxApp.Stop(stopCtx)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: pingmectl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  whoami                  Show the signed-in user")
	fmt.Fprintln(os.Stderr, "  signin                  Sign in with the configured provider")
	fmt.Fprintln(os.Stderr, "  signout                 Go offline and forget the session")
	fmt.Fprintln(os.Stderr, "  users                   List peers with presence and unread counts")
	fmt.Fprintln(os.Stderr, "  send <uid> <text>       Send a message")
	fmt.Fprintln(os.Stderr, "  open <uid>              Mark the conversation seen and print it")
	fmt.Fprintln(os.Stderr, "  token issue <uid> ...   Issue a signed identity token (see token issue -h)")
}

func cmdWhoami(c *client.Client, jsonOut bool) error {
	self, ok := c.View().Self()
	if !ok {
		return client.ErrSignedOut
	}
	if jsonOut {
		outputJSON(self)
		return nil
	}
	printProfile(self)
	return nil
}

func cmdSignIn(ctx context.Context, c *client.Client, jsonOut bool) error {
	if err := c.SignIn(ctx); err != nil {
		return err
	}
	return cmdWhoami(c, jsonOut)
}

type userRow struct {
	chat.UserProfile
	Unread int `json:"unread"`
}

func cmdUsers(ctx context.Context, c *client.Client, jsonOut bool) error {
	u, err := c.Roster(ctx)
	if err != nil {
		return err
	}
	rows := make([]userRow, len(u.Peers))
	for i, p := range u.Peers {
		rows[i] = userRow{UserProfile: p, Unread: u.Unread[p.UID]}
	}
	if jsonOut {
		outputJSON(rows)
		return nil
	}
	if len(rows) == 0 {
		fmt.Println("No other users.")
		return nil
	}
	for _, r := range rows {
		fmt.Printf("%-24s %-28s %-8s %d unread\n", r.UID, r.Name(), r.Presence, r.Unread)
	}
	return nil
}

func cmdSend(ctx context.Context, c *client.Client, peer, text string, jsonOut bool) error {
	ref, err := c.Send(ctx, peer, text)
	if err != nil {
		return err
	}
	if jsonOut {
		outputJSON(map[string]string{"id": ref.ID, "path": ref.Path()})
		return nil
	}
	fmt.Printf("Sent %s\n", ref.Path())
	return nil
}

func cmdOpen(ctx context.Context, c *client.Client, peer string, jsonOut bool) error {
	msgs, err := c.Open(ctx, peer)
	if err != nil {
		return err
	}
	self, _ := c.View().Self()
	if jsonOut {
		outputJSON(msgs)
		return nil
	}
	if len(msgs) == 0 {
		fmt.Println("No messages.")
		return nil
	}
	for _, m := range msgs {
		from, receipt := m.SenderID, ""
		if m.SenderID == self.UID {
			from, receipt = "you", " "+m.Status.Receipt()
		}
		at := "--:--"
		if !m.Timestamp.IsZero() {
			at = m.Timestamp.Local().Format("15:04")
		}
		fmt.Printf("[%s] %s: %s%s\n", at, from, m.Text, receipt)
	}
	return nil
}

func cmdToken(args []string) {
	if len(args) == 0 || args[0] != "issue" {
		fail(errors.New("usage: pingmectl token issue [flags] <uid>"))
	}
	fs := flag.NewFlagSet("token issue", flag.ExitOnError)
	name := fs.String("name", "", "display name claim")
	email := fs.String("email", "", "email claim")
	photo := fs.String("photo", "", "photo URL claim")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
	out := fs.String("o", "", "write the token to this file instead of stdout")
	_ = fs.Parse(args[1:])
	if fs.NArg() != 1 {
		fail(errors.New("usage: pingmectl token issue [flags] <uid>"))
	}

	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		fail(err)
	}
	if cfg.Identity.JWTSecret == "" {
		fail(fmt.Errorf("no jwt_secret configured (set %s)", config.EnvJWTSecret))
	}

	token, err := identity.NewTokens(cfg.Identity.JWTSecret).Issue(identity.Principal{
		UID:         fs.Arg(0),
		DisplayName: *name,
		Email:       *email,
		PhotoURL:    *photo,
	}, *ttl)
	if err != nil {
		fail(err)
	}
	if *out == "" {
		fmt.Println(token)
		return
	}
	if err := os.WriteFile(*out, []byte(token+"\n"), 0600); err != nil {
		fail(err)
	}
}

func printProfile(p chat.UserProfile) {
	fmt.Printf("UID:      %s\n", p.UID)
	fmt.Printf("Name:     %s\n", p.Name())
	fmt.Printf("Email:    %s\n", p.Email)
	fmt.Printf("Presence: %s\n", p.Presence)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
