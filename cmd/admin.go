package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aggregator/handler/render"
	"aggregator/pkg/resthttp"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var adminFlags struct {
	api   string
	admin string
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "admin tools of a running aggregator",
}

var tokenCmd = &cobra.Command{
	Use:   "token <user>",
	Short: "issue a session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := provideSession().Issue(args[0], ttl)
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause <asset|*> <mask>",
	Short: "set the pause mask of an asset, 0 resumes everything",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mask, err := cast.ToUint8E(args[1])
		if err != nil {
			return err
		}

		return adminCall(cmd.Context(), "POST", "/admin/pause", map[string]interface{}{
			"asset": args[0],
			"mask":  mask,
		}, nil)
	},
}

var reserveCmd = &cobra.Command{
	Use:   "reserve <max_pending_ratio_bps>",
	Short: "set the queued repay cap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bps, err := cast.ToUint64E(args[0])
		if err != nil {
			return err
		}

		return adminCall(cmd.Context(), "POST", "/admin/reserve", map[string]interface{}{
			"max_pending_ratio_bps": bps,
		}, nil)
	},
}

var enableBackendCmd = &cobra.Command{
	Use:   "enable-backend <index> <true|false>",
	Short: "enable or disable a backend",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := cast.ToIntE(args[0])
		if err != nil {
			return err
		}

		enabled, err := cast.ToBoolE(args[1])
		if err != nil {
			return err
		}

		return adminCall(cmd.Context(), "POST", fmt.Sprintf("/admin/backends/%d/enabled", index), map[string]interface{}{
			"enabled": enabled,
		}, nil)
	},
}

var addBackendCmd = &cobra.Command{
	Use:   "add-backend <name> <end_point>",
	Short: "register a remote backend",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		var resp struct {
			Index int `json:"index"`
		}

		if err := adminCall(cmd.Context(), "POST", "/admin/backends", map[string]interface{}{
			"name":       args[0],
			"end_point":  args[1],
			"timeout_ms": timeout.Milliseconds(),
		}, &resp); err != nil {
			return err
		}

		cmd.Println("backend index", resp.Index)
		return nil
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "list backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp json.RawMessage
		if err := adminCall(cmd.Context(), "GET", "/backends", nil, &resp); err != nil {
			return err
		}

		cmd.Println(string(resp))
		return nil
	},
}

func adminCall(ctx context.Context, method, uri string, body, resp interface{}) error {
	token, err := provideSession().Issue(adminFlags.admin, time.Minute)
	if err != nil {
		return err
	}

	req := resthttp.Request(ctx).SetAuthToken(token)
	if body != nil {
		req = req.SetBody(body)
	}

	r, err := req.Execute(method, adminFlags.api+uri)
	if err != nil {
		return err
	}

	if !r.IsSuccess() {
		return resthttp.ParseResponse(r, nil)
	}

	return render.UnwrapResponse(r.Body(), resp)
}

func init() {
	rootCmd.AddCommand(adminCmd)

	adminCmd.PersistentFlags().StringVar(&adminFlags.api, "api", "http://localhost:9000/api", "api base url")
	adminCmd.PersistentFlags().StringVar(&adminFlags.admin, "as", "", "admin user id, the first configured admin by default")
	adminCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if adminFlags.admin == "" && len(cfg.Admins) > 0 {
			adminFlags.admin = cfg.Admins[0]
		}
	}

	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token ttl")
	addBackendCmd.Flags().Duration("timeout", 10*time.Second, "backend call timeout")

	adminCmd.AddCommand(tokenCmd, pauseCmd, reserveCmd, enableBackendCmd, addBackendCmd, backendsCmd)
}
