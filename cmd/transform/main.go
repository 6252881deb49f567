package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invite-digest/config"
	"invite-digest/services"
	"invite-digest/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		fieldMapPath string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "transform [record.json]",
		Short: "Transform one captured platform record into the flat email mapping",
		Long: `Reads a single JSON object (from the given file or stdin), runs the same
transform the HTTP service runs and prints the resulting mapping as JSON.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop()
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l
			}
			defer logger.Sync()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				fh, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer fh.Close()
				in = fh
			}

			out, err := runTransform(cmd.Context(), logger, cfg, fieldMapPath, in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&fieldMapPath, "field-map", "", "YAML file overriding the candidate key lists")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log fallback decisions to stderr")
	return cmd
}

func runTransform(ctx context.Context, logger *zap.Logger, cfg *config.Config, fieldMapPath string, in io.Reader) (map[string]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var source storage.Source
	if fieldMapPath != "" {
		source = storage.NewFileSource(fieldMapPath)
	}
	store := services.NewFieldMapStore(logger, source)
	if source != nil {
		if err := store.Reload(ctx); err != nil {
			return nil, err
		}
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	decoded, err := services.TryNormalizeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	input, ok := decoded.(map[string]any)
	if !ok {
		return nil, errors.New("record must be a JSON object")
	}

	svc := services.NewTransformService(logger, store, services.OptionsFromConfig(cfg))
	digest, _ := svc.Transform(ctx, input)
	return digest.ToMap(), nil
}
