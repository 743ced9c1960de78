package cmd

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/saravenpi/haggle/internal/ui"
)

func init() {
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(messageCmd)
}

var openCmd = &cobra.Command{
	Use:   "open [conversation-id]",
	Short: "Open a conversation directly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		return rt.run(func() tea.Model { return ui.NewMessagesModel(rt.app, id) })
	},
}

var messageCmd = &cobra.Command{
	Use:   "message [seller-id | saved-seller-name]",
	Short: "Start or reuse a conversation with a seller",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		return rt.run(func() tea.Model { return ui.NewStartModel(rt.app, args[0]) })
	},
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
