package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rsned/production-planner/pkg/planner"
)

var (
	optimizeUser    string
	optimizeTargets []string
)

// optimizeCmd runs a single optimization and prints the plan
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a production line and print the plan as JSON",
	Example: `  planner optimize --target 11=20 --target 12=15
  planner optimize --user alice --target 11=60`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := parseTargets(optimizeTargets)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.engine.Optimize(ctx, planner.OptimizeRequest{
			UserKey: optimizeUser,
			Targets: targets,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeUser, "user", "", "User whose recipe configuration applies")
	optimizeCmd.Flags().StringArrayVarP(&optimizeTargets, "target", "t", nil, "Target as item_id=rate (repeatable)")
	_ = optimizeCmd.MarkFlagRequired("target")
}

// parseTargets parses "item_id=rate" pairs.
func parseTargets(raw []string) ([]planner.Target, error) {
	targets := make([]planner.Target, 0, len(raw))
	for _, s := range raw {
		id, rate, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("target %q: expected item_id=rate", s)
		}
		itemID, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("target %q: invalid item id: %w", s, err)
		}
		r, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
		if err != nil {
			return nil, fmt.Errorf("target %q: invalid rate: %w", s, err)
		}
		targets = append(targets, planner.Target{ProductID: itemID, Rate: r})
	}
	return targets, nil
}
