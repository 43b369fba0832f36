// Command ftpx is a small command-line FTP client built on top of the
// ftpx package, for quick manual testing of a server: connect, list, get,
// put, and walk a remote tree from a shell.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/mossbrook/ftpx"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.FgHiBlack)
	okColor   = color.New(color.FgGreen)
	pathColor = color.New(color.FgCyan)
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ftpx", flag.ContinueOnError)
	addr := fs.String("addr", "", "server address, host:port")
	user := fs.String("user", "anonymous", "username")
	pass := fs.String("pass", "anonymous@", "password")
	useTLS := fs.Bool("tls", false, "use explicit TLS (AUTH TLS)")
	implicitTLS := fs.Bool("implicit-tls", false, "use implicit TLS")
	insecure := fs.Bool("insecure", false, "skip TLS certificate verification")
	socksProxy := fs.String("socks-proxy", "", "SOCKS5 proxy address, host:port")
	ipFamily := fs.String("ip-family", "", `"tcp4" or "tcp6" to force an address family`)
	timeout := fs.Duration("timeout", 15*time.Second, "operation timeout")
	verbose := fs.Bool("v", false, "print commands and responses")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if *addr == "" || len(rest) == 0 {
		printUsage()
		return 2
	}

	cmd, cmdArgs := rest[0], rest[1:]

	opts := []ftpx.Option{ftpx.WithTimeout(*timeout)}
	if *socksProxy != "" {
		opts = append(opts, ftpx.WithSocksProxy(*socksProxy))
	}
	if *ipFamily != "" {
		opts = append(opts, ftpx.WithIPFamily(*ipFamily))
	}
	if *implicitTLS {
		opts = append(opts, ftpx.WithImplicitTLS(&tls.Config{InsecureSkipVerify: *insecure}))
	} else if *useTLS {
		opts = append(opts, ftpx.WithExplicitTLS(&tls.Config{InsecureSkipVerify: *insecure}))
	}
	if *verbose {
		opts = append(opts, ftpx.WithLogger(slog.New(&verboseHandler{})))
	}

	client, err := ftpx.Dial(*addr, opts...)
	if err != nil {
		errColor.Fprintf(os.Stderr, "dial: %v\n", err)
		return 1
	}
	defer client.Quit()

	if err := client.Login(*user, *pass); err != nil {
		errColor.Fprintf(os.Stderr, "login: %v\n", err)
		return 1
	}

	if err := dispatch(client, cmd, cmdArgs); err != nil {
		errColor.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func dispatch(c *ftpx.Client, cmd string, args []string) error {
	switch cmd {
	case "ls":
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		entries, err := c.List(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			pathColor.Printf("%-6s", e.Type)
			fmt.Printf(" %10d  %s\n", e.Size, e.Name)
		}
		return nil

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get <remote> <local>")
		}
		if err := c.RetrieveTo(args[0], args[1]); err != nil {
			return err
		}
		okColor.Printf("downloaded %s -> %s\n", args[0], args[1])
		return nil

	case "put":
		if len(args) != 2 {
			return fmt.Errorf("usage: put <local> <remote>")
		}
		if err := c.StoreFrom(args[1], args[0]); err != nil {
			return err
		}
		okColor.Printf("uploaded %s -> %s\n", args[0], args[1])
		return nil

	case "mirror-up":
		if len(args) != 2 {
			return fmt.Errorf("usage: mirror-up <local-dir> <remote-dir>")
		}
		return c.MirrorUpload(args[0], args[1])

	case "mirror-down":
		if len(args) != 2 {
			return fmt.Errorf("usage: mirror-down <remote-dir> <local-dir>")
		}
		return c.MirrorDownload(args[0], args[1])

	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("usage: rm <remote>")
		}
		return c.Delete(args[0])

	case "mkdir":
		if len(args) != 1 {
			return fmt.Errorf("usage: mkdir <remote>")
		}
		return c.MakeDir(args[0])

	case "pwd":
		dir, err := c.CurrentDir()
		if err != nil {
			return err
		}
		fmt.Println(dir)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: ftpx -addr host:port [options] <command> [args...]")
	fmt.Fprintln(os.Stderr, "commands: ls, get, put, mirror-up, mirror-down, rm, mkdir, pwd")
}

// verboseHandler prints ftpx's structured debug log lines (ftp command /
// ftp response) in dim gray, keeping protocol chatter visually out of the
// way of command output.
type verboseHandler struct{}

func (verboseHandler) Enabled(context.Context, slog.Level) bool { return true }

func (verboseHandler) Handle(_ context.Context, r slog.Record) error {
	line := r.Message
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
		return true
	})
	dimColor.Println(line)
	return nil
}

func (h *verboseHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *verboseHandler) WithGroup(name string) slog.Handler       { return h }
