package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout KEY",
	Short: "Check out the branch for a task",
	Long: `Check out the feature branch for a task, creating it when needed.

A new branch is cut from the freshly pulled base branch. The working tree
must be clean.

Examples:
  jora checkout ABC-123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.checkout(ctx, args[0])
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Stage all changes and commit with the task title",
	Long: `Stage every change in the working tree and commit it with the lower-cased
title of the task named by the current branch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.commit(ctx)
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(commitCmd)
}

func (a *app) checkout(ctx context.Context, key string) error {
	engine, err := a.engine(false, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "🔄 Checking out branch for %s...\n", key)
	branch, err := engine.CheckoutTask(ctx, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✅ Checked out '%s'\n", branch)
	fmt.Fprintf(a.out, "🎉 Ready to work on %s!\n", key)
	return nil
}

func (a *app) commit(ctx context.Context) error {
	engine, err := a.engine(true, false)
	if err != nil {
		return err
	}

	res, err := engine.CommitWithTaskTitle(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✅ Committed changes with title: %s\n", res.Message)
	return nil
}
