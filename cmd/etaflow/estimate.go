package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	service "github.com/okian/etaflow/internal/app"
	"github.com/okian/etaflow/internal/domain/present"
)

// errRunFailed signals a completed but unsuccessful run; the result has
// already been printed.
var errRunFailed = errors.New("estimate failed")

func newEstimateCmd(c *cli) *cobra.Command {
	var req struct {
		driver, load, prompt, role string
	}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Run the pipeline once and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, err := buildPipeline(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			res := p.orch.Run(ctx, service.Request{
				DriverID:   req.driver,
				LoadID:     req.load,
				PromptType: present.PromptType(req.prompt),
				UserRole:   present.UserRole(req.role),
			})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Success {
				return errRunFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.driver, "driver", "", "driver identifier")
	f.StringVar(&req.load, "load", "", "load identifier")
	f.StringVar(&req.prompt, "prompt", string(present.PromptETAEstimate), "prompt type: eta_estimate, delay_explanation, risk_assessment")
	f.StringVar(&req.role, "role", string(present.RoleDispatcher), "audience: dispatcher, driver, customer")
	_ = cmd.MarkFlagRequired("driver")
	_ = cmd.MarkFlagRequired("load")
	return cmd
}
