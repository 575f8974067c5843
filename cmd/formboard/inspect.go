package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/repository"
	"github.com/creamcroissant/formboard/internal/repository/sqlite"
)

var (
	styleLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Width(10)
	styleValue = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))
	styleTag   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22C55E"))
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// inspectRequest 描述一次 ETag 推导：列表（可带父级过滤与分页）或单条记录。
type inspectRequest struct {
	Resource string
	ID       int64
	Parent   int64
	Limit    int
	Offset   int
}

// inspection 是 etag 命令的输出。
type inspection struct {
	Resource string `yaml:"resource"`
	ID       int64  `yaml:"id,omitempty"`
	Origin   string `yaml:"origin,omitempty"`
	Value    string `yaml:"value,omitempty"`
	ETag     string `yaml:"etag"`
	Note     string `yaml:"note,omitempty"`
}

type inspectTarget struct {
	list func(repository.ListFilter) etag.Collection
	get  func(context.Context, int64) (etag.Entity, error)
	// detail returns an extra collection published alongside the object.
	detail func(int64) etag.Collection
}

func getter[T etag.Entity](fn func(context.Context, int64) (T, error)) func(context.Context, int64) (etag.Entity, error) {
	return func(ctx context.Context, id int64) (etag.Entity, error) {
		v, err := fn(ctx, id)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func inspectTargets(store repository.Store) map[string]inspectTarget {
	return map[string]inspectTarget{
		"orgs": {
			list: func(f repository.ListFilter) etag.Collection { return store.Organizations().List(f) },
			get:  getter(store.Organizations().FindByID),
		},
		"users": {
			list: func(f repository.ListFilter) etag.Collection { return store.Users().List(f) },
			get:  getter(store.Users().FindByID),
		},
		"teams": {
			list: func(f repository.ListFilter) etag.Collection { return store.Teams().List(f) },
			get:  getter(store.Teams().FindByID),
		},
		"projects": {
			list: func(f repository.ListFilter) etag.Collection { return store.Projects().List(f) },
			get:  getter(store.Projects().FindByID),
		},
		"forms": {
			list: func(f repository.ListFilter) etag.Collection { return store.XForms().List(f) },
			get:  getter(store.XForms().FindByID),
		},
		"metadata": {
			list: func(f repository.ListFilter) etag.Collection { return store.MetaData().List(f) },
			get:  getter(store.MetaData().FindByID),
		},
		"widgets": {
			list:   func(f repository.ListFilter) etag.Collection { return store.Widgets().List(f) },
			get:    getter(store.Widgets().FindByID),
			detail: func(id int64) etag.Collection { return store.Widgets().ByID(id) },
		},
		"data": {
			list: func(f repository.ListFilter) etag.Collection { return store.Instances().List(f) },
			get:  getter(store.Instances().FindByID),
		},
		"attachments": {
			list: func(f repository.ListFilter) etag.Collection { return store.Attachments().List(f) },
			get:  getter(store.Attachments().FindByID),
		},
		"notes": {
			list: func(f repository.ListFilter) etag.Collection { return store.Notes().List(f) },
			get:  getter(store.Notes().FindByID),
		},
	}
}

func resourceNames(targets map[string]inspectTarget) []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// inspectETag publishes the same data the API handler would and resolves it.
func inspectETag(ctx context.Context, store repository.Store, resolver *etag.Resolver, req inspectRequest) (inspection, error) {
	targets := inspectTargets(store)
	target, ok := targets[req.Resource]
	if !ok {
		return inspection{}, fmt.Errorf("unknown resource %q (want one of %s)", req.Resource, strings.Join(resourceNames(targets), ", "))
	}

	ctx, src := etag.WithSource(ctx)
	if req.ID > 0 {
		obj, err := target.get(ctx, req.ID)
		if err != nil {
			return inspection{}, fmt.Errorf("load %s %d: %w", req.Resource, req.ID, err)
		}
		etag.SetObject(ctx, obj)
		if target.detail != nil {
			etag.SetCollection(ctx, target.detail(req.ID))
		}
	} else {
		filter := repository.ListFilter{Limit: req.Limit, Offset: req.Offset}
		if req.Parent > 0 {
			parent := req.Parent
			filter.ParentID = &parent
		}
		etag.SetCollection(ctx, target.list(filter))
	}

	result, ok, err := src.Resolve(ctx, resolver)
	if err != nil {
		return inspection{}, err
	}
	out := inspection{Resource: req.Resource, ID: req.ID}
	if !ok {
		out.Note = "empty collection, no ETag is sent"
		return out, nil
	}
	out.Origin = string(result.Origin)
	out.Value = result.Value
	out.ETag = result.Header
	if result.Origin == etag.OriginClock {
		out.Note = "clock based, changes on every request"
	}
	return out, nil
}

func renderInspection(w io.Writer, format string, in inspection) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(in); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		row := func(label, value string, style lipgloss.Style) {
			fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, styleLabel.Render(label), style.Render(value)))
		}
		subject := in.Resource
		if in.ID > 0 {
			subject = fmt.Sprintf("%s/%d", in.Resource, in.ID)
		}
		row("resource", subject, styleValue)
		if in.ETag == "" {
			row("etag", "(none)", styleMuted)
		} else {
			row("etag", in.ETag, styleTag)
			row("origin", in.Origin, styleValue)
			row("value", in.Value, styleValue)
		}
		if in.Note != "" {
			row("note", in.Note, styleMuted)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (text|yaml)", format)
	}
}

func init() {
	var (
		req    inspectRequest
		output string
	)
	var etagCmd = &cobra.Command{
		Use:   "etag <resource>",
		Short: "Show the ETag the API would send for a resource",
		Long: `Resolves the weak ETag for a list (optionally filtered by --parent and sliced with
--limit/--offset) or, with --id, for a single record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			req.Resource = args[0]
			result, err := inspectETag(cmd.Context(), sqlite.NewStore(db), etag.NewResolver(nil), req)
			if err != nil {
				return err
			}
			return renderInspection(cmd.OutOrStdout(), output, result)
		},
	}
	etagCmd.Flags().Int64Var(&req.ID, "id", 0, "Record id (detail view)")
	etagCmd.Flags().Int64Var(&req.Parent, "parent", 0, "Parent id filter for list views")
	etagCmd.Flags().IntVar(&req.Limit, "limit", 0, "Page size")
	etagCmd.Flags().IntVar(&req.Offset, "offset", 0, "Page offset")
	etagCmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text|yaml")
	rootCmd.AddCommand(etagCmd)
}
