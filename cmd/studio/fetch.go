package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-studio/internal/contenttypes"
	"github.com/GyroZepelix/mithril-studio/internal/schema"
)

type fetchOptions struct {
	site string
	id   string
	typ  string
	path string
}

func newFetchCmd(a *app) *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print the normalized content types of a site as JSON",
		Long: `Fetches the catalog of a site, or a single content type with --id, normalizes
it, validates it, and writes it to stdout as indented JSON.

Example:
  studio fetch --site editorial --type component
  studio fetch --site editorial --id /page/article`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.site == "" {
				return errors.New("--site is required")
			}

			p, err := newPipeline(a.cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			var out any
			if opts.id != "" {
				ct, err := p.service.FetchContentType(cmd.Context(), opts.site, opts.id)
				if err != nil {
					return err
				}
				if err := schema.ValidateContentType(ct); err != nil {
					return err
				}
				out = ct
			} else {
				types, err := p.service.FetchContentTypes(cmd.Context(), opts.site, contenttypes.Query{
					Type: opts.typ,
					Path: opts.path,
				})
				if err != nil {
					return err
				}
				if err := schema.ValidateContentTypes(types); err != nil {
					return err
				}
				out = types
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&opts.site, "site", "", "site to read (required)")
	cmd.Flags().StringVar(&opts.id, "id", "", "fetch a single content type, e.g. /component/banner")
	cmd.Flags().StringVar(&opts.typ, "type", "", "keep only content types of this type")
	cmd.Flags().StringVar(&opts.path, "path", "", "limit the catalog to a repository path")
	return cmd
}
