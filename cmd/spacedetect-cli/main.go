package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spacedetect/internal/auth"
	"spacedetect/internal/client"
	"spacedetect/internal/codec"
	"spacedetect/internal/detection"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
	debug     bool
	asJSON    bool

	api *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "spacedetect-cli",
	Short: "Client for the spacedetect detection service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.New(serverURL, newDoer(timeout, debug))
		if err != nil {
			return err
		}
		if token != "" {
			c.SetToken(token)
		}
		api = c
		return nil
	},
	SilenceUsage: true,
}

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run detection on an image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := api.DetectFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if out, _ := cmd.Flags().GetString("output"); out != "" {
			data, err := codec.DecodeBase64(res.ProcessedImage)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write annotated image: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Annotated image written to %s\n", out)
		}

		if asJSON {
			res.ProcessedImage = ""
			return printJSON(res)
		}

		fmt.Printf("Model: %s\n", res.ModelInfo.ModelName)
		fmt.Printf("Detections: %d\n", len(res.Detections))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CLASS\tLABEL\tCONFIDENCE\tX\tY\tWIDTH\tHEIGHT")
		for _, d := range res.Detections {
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%.1f\t%.1f\t%.1f\t%.1f\n",
				d.ClassID, detection.LabelOf(res.ModelInfo.Labels, d.ClassID), d.Confidence,
				d.BBox.X, d.BBox.Y, d.BBox.Width, d.BBox.Height)
		}
		return w.Flush()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service health",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := api.Health(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(res)
		}
		fmt.Printf("Status: %s\nModel loaded: %t\nMode: %s\n", res.Status, res.ModelLoaded, res.Mode)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the served model",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := api.Info(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List recently saved annotated images",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		res, err := api.Artifacts(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(res)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tMODE\tDETECTIONS\tFILENAME\tPATH")
		for _, r := range res.Artifacts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Mode, r.Detections, r.Filename, r.Path)
		}
		return w.Flush()
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		res, err := api.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		fmt.Println(res.Token)
		fmt.Fprintf(cmd.ErrOrStderr(), "Expires at %s\n", time.Unix(res.ExpiresAt, 0).Format(time.RFC3339))
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for the auth.password setting",
	Long: `Print a bcrypt hash that can be stored in auth.password or AUTH_PASSWORD
instead of the plain text password. Without an argument the password is read
from the first line of standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("SPACEDETECT_URL", "http://localhost:8000"), "Server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("SPACEDETECT_TOKEN"), "Bearer token for protected endpoints")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Print request and response details")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print raw JSON output")

	detectCmd.Flags().StringP("output", "o", "", "Write the annotated image to this file")
	artifactsCmd.Flags().Int("limit", 20, "Maximum number of artifacts to list")
	loginCmd.Flags().String("username", "admin", "Username")
	loginCmd.Flags().String("password", "", "Password")
	loginCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(detectCmd, healthCmd, infoCmd, artifactsCmd, loginCmd, hashPasswordCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
