package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/sender"
)

var sendMsgType string

var sendCmd = &cobra.Command{
	Use:   "send FROM TO CONTENT",
	Short: "Enqueue an immediate message into a recipient's inbox",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		msgType, ok := registry.ParseMessageType(sendMsgType)
		if !ok {
			return usageErrorf("invalid message type %q", sendMsgType)
		}

		msg, err := application.coordinator.SendMessage(args[0], args[1], msgType, args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", msg.ID)
		return nil
	},
}

var (
	sendDelayedDelay    time.Duration
	sendDelayedPriority string
)

var sendDelayedCmd = &cobra.Command{
	Use:   "send-delayed SESSION CONTENT",
	Short: "Schedule a two-phase delayed keystroke delivery",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		priority, ok := parsePriority(sendDelayedPriority)
		if !ok {
			return usageErrorf("invalid priority %q (want low|normal|high|urgent)", sendDelayedPriority)
		}

		requestID, err := application.coordinator.SendDelayed(args[0], args[1], sendDelayedDelay, priority, nil, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", requestID)
		return nil
	},
}

func parsePriority(s string) (sender.Priority, bool) {
	switch s {
	case "", "normal":
		return sender.PriorityNormal, true
	case "low":
		return sender.PriorityLow, true
	case "high":
		return sender.PriorityHigh, true
	case "urgent":
		return sender.PriorityUrgent, true
	default:
		return sender.PriorityNormal, false
	}
}

func init() {
	sendCmd.Flags().StringVar(&sendMsgType, "type", "Instruction", "message type (StatusUpdate|TaskCompleted|Instruction|Query|Response|Error)")
	sendDelayedCmd.Flags().DurationVar(&sendDelayedDelay, "delay", sender.DefaultDelay, "pause between phase A (content) and phase B (Enter)")
	sendDelayedCmd.Flags().StringVar(&sendDelayedPriority, "priority", "normal", "low|normal|high|urgent")
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(sendDelayedCmd)
}
