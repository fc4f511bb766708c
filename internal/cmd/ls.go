package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/query"
	"github.com/runger/hyperscripter/internal/scriptrepo"
	"github.com/runger/hyperscripter/internal/tagselector"
)

var (
	lsAll    bool
	lsFormat string
)

var lsCmd = &cobra.Command{
	Use:     "ls [QUERY]",
	Short:   "List scripts matching the active tag filter",
	GroupID: groupCore,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runLs,
}

func init() {
	lsCmd.Flags().BoolVar(&lsAll, "all", false, "include scripts hidden by the active tag filter")
	lsCmd.Flags().StringVar(&lsFormat, "format", "raw", "output format: raw or json")
}

func runLs(c *cobra.Command, args []string) error {
	ctx := c.Context()
	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	app.Repo.FilterByTag(app.Selector)

	fq := query.FilterQuery{}
	if len(args) == 1 {
		fq = query.ParseFilter(args[0])
	}

	var nameQuery *query.ListQuery
	if fq.HasName {
		lq, err := query.ParseList(fq.Name)
		if err != nil {
			return err
		}
		nameQuery = &lq
	}

	var extraSelector *tagselector.Selector
	if fq.Tags != "" {
		sel, err := tagselector.Parse(fq.Tags)
		if err != nil {
			return err
		}
		extraSelector = &sel
	}

	var infos []*scriptrepo.ScriptInfo
	if lsAll {
		infos = app.Repo.IterAll()
	} else {
		infos = app.Repo.Iter()
	}

	var out []*scriptrepo.ScriptInfo
	for _, info := range infos {
		if nameQuery != nil && !nameQuery.Match(info.Name.Key()) {
			continue
		}
		if extraSelector != nil {
			if pass, matched := extraSelector.Select(info.Tags); matched && !pass {
				continue
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name.Less(out[j].Name) })

	switch lsFormat {
	case "raw":
		for _, info := range out {
			fmt.Printf("%s\t%s\t%s\n", info.Name.Key(), info.Type, strings.Join(tagSlice(info.Tags), ","))
		}
	case "json":
		fmt.Print("[")
		for i, info := range out {
			if i > 0 {
				fmt.Print(",")
			}
			fmt.Printf("{\"name\":%q,\"type\":%q,\"tags\":%q}", info.Name.Key(), info.Type, strings.Join(tagSlice(info.Tags), ","))
		}
		fmt.Println("]")
	default:
		return fmt.Errorf("cmd: invalid format %q (use raw or json)", lsFormat)
	}
	return nil
}
