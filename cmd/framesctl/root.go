package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "framesctl",
		Short:         "Video Frame Pro extraction CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSubmitCommand())

	return rootCmd
}

// requestFlags is the flag-based form of an extraction request. A request
// file, when given, replaces the individual flags.
type requestFlags struct {
	file     string
	source   string
	owner    string
	notify   string
	interval int
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read the request JSON from a file (- for stdin)")
	cmd.Flags().StringVar(&f.source, "source", "", "Source video identifier")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Owner identifier")
	cmd.Flags().StringVar(&f.notify, "notify", "", "Notification target")
	cmd.Flags().IntVar(&f.interval, "interval", 0, "Seconds of video between extracted frames")
}

// payload returns the raw request body. Flag values are passed through
// unchecked so the pipeline reports problems the same way it does for
// queued requests.
func (f *requestFlags) payload(stdin io.Reader) ([]byte, error) {
	switch f.file {
	case "":
	case "-":
		return io.ReadAll(stdin)
	default:
		data, err := os.ReadFile(f.file)
		if err != nil {
			return nil, fmt.Errorf("read request file: %w", err)
		}
		return data, nil
	}

	return json.Marshal(entity.ExtractionRequest{
		SourceID:              f.source,
		OwnerID:               f.owner,
		NotifyTarget:          f.notify,
		SampleIntervalSeconds: f.interval,
	})
}
