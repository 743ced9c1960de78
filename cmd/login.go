package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/saravenpi/haggle/internal/config"
	"github.com/saravenpi/haggle/internal/session"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(versionCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save an access token for the marketplace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := sessionService(cmd)
		if err != nil {
			return err
		}

		token, err := readToken()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		if err := svc.Save(token); err != nil {
			return err
		}

		if id, err := svc.SelfID(); err == nil {
			fmt.Printf("✅ Signed in as user #%d\n", id)
		} else {
			fmt.Println("✅ Signed in")
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := sessionService(cmd)
		if err != nil {
			return err
		}
		if err := svc.Clear(); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("haggle %s (commit: %s)\n", version, commit)
	},
}

// sessionService builds the session store without the rest of the runtime.
func sessionService(cmd *cobra.Command) (*session.Service, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	svc := session.New(cfg.SessionPath())
	if err := svc.Init(); err != nil {
		return nil, err
	}
	return svc, nil
}

// readToken reads without echo from a terminal, or a plain line from a pipe.
func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Access token: ")
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
