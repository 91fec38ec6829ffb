package client

import (
	"fmt"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"
)

// DownloadCmd creates the download command
func DownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <path>",
		Short: "Download a file produced by the API",
		Long:  "Fetches a report or other file from the API and writes it to disk.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desk, err := NewDeskWithCmd(cmd, true)
			if err != nil {
				return err
			}
			defer desk.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			remotePath := strings.TrimPrefix(strings.TrimSpace(args[0]), "/")
			blob, err := desk.Client.Download(ctx, remotePath)
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}

			if output == "" {
				output = downloadName(remotePath, blob.ContentType)
			}
			if err := os.WriteFile(output, blob.Data, 0644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}

			fmt.Printf("Saved %s (%d bytes, %s)\n", output, len(blob.Data), blob.ContentType)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "Output file (default from the path)")

	return cmd
}

// downloadName derives a file name from the last path segment, adding an
// extension for the content type when the segment has none.
func downloadName(remotePath, contentType string) string {
	name := path.Base(remotePath)
	if name == "." || name == "/" || name == "" {
		name = "download"
	}
	if path.Ext(name) != "" {
		return name
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return name + exts[0]
		}
	}
	return name
}
