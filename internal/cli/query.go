package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bal/internal/manager"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// QueryOptions holds flags shared by the batch query commands.
type QueryOptions struct {
	*RootOptions
	Access string
}

func addAccessFlag(cmd *cobra.Command, target *string, def ref.Access) {
	cmd.Flags().StringVar(target, "access", string(def),
		"access mode (read|write|managerDriven|createRelated|required)")
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exists <ref>...",
		Short: "Report whether entity references exist",
		Long: `Report, per reference, whether it addresses an entity in the library.

Examples:
  bal exists bal:///shot bal:///shot?v=2 --library ./library.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExists(opts, args, cmd)
		},
	}
	addAccessFlag(cmd, &opts.Access, ref.Read)

	return cmd
}

func runExists(opts *QueryOptions, refs []string, cmd *cobra.Command) error {
	access, err := parseAccess(opts.Access)
	if err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	r := newBatchResult("exists", access, refs)
	err = s.manager.EntityExists(cmd.Context(), refs, access,
		func(idx int, exists bool) { r.ok(idx, exists) }, r.fail)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeBatch, "exists failed", err)
	}
	return writeBatch(s.out, r)
}

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	QueryOptions
	Traits []string
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "resolve <ref>...",
		Short: "Resolve trait data for entity references",
		Long: `Resolve the requested traits of each referenced entity.

Without --traits every trait of the resolved version is returned.
Variables such as ${bal_library_dir} are expanded and file URLs are
normalized.

Examples:
  bal resolve bal:///shot --traits locatableContent
  bal resolve bal:///shot?v=1 bal:///proxy --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args, cmd)
		},
	}
	addAccessFlag(cmd, &opts.Access, ref.Read)
	cmd.Flags().StringSliceVarP(&opts.Traits, "traits", "t", nil, "trait ids to resolve (default all)")

	return cmd
}

func runResolve(opts *ResolveOptions, refs []string, cmd *cobra.Command) error {
	access, err := parseAccess(opts.Access)
	if err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	r := newBatchResult("resolve", access, refs)
	err = s.manager.Resolve(cmd.Context(), refs, wantedTraits(s, refs, opts.Traits), access,
		func(idx int, data trait.Data) { r.ok(idx, data) }, r.fail)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeBatch, "resolve failed", err)
	}
	return writeBatch(s.out, r)
}

// wantedTraits returns the requested set, or the union of every
// referenced entity's traits when none were requested.
func wantedTraits(s *session, refs []string, requested []string) trait.Set {
	if len(requested) > 0 {
		return trait.NewSet(requested...)
	}
	snap := s.manager.Engine().Snapshot()
	codec := s.manager.Codec()
	all := trait.Set{}
	for _, reference := range refs {
		loc, err := codec.Parse(reference, ref.Read)
		if err != nil {
			continue
		}
		if set, _, err := snap.EntityTraits(loc); err == nil {
			all = all.Union(set)
		}
	}
	return all
}

// NewTraitsCommand creates the traits command.
func NewTraitsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "traits <ref>...",
		Short: "List the trait set of entity references",
		Long: `List the trait set each referenced entity has for the access mode.

With a write-like access an entity with nothing published yet reports an
empty set, meaning any traits may be published.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraits(opts, args, cmd)
		},
	}
	addAccessFlag(cmd, &opts.Access, ref.Read)

	return cmd
}

func runTraits(opts *QueryOptions, refs []string, cmd *cobra.Command) error {
	access, err := parseAccess(opts.Access)
	if err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	r := newBatchResult("traits", access, refs)
	err = s.manager.EntityTraits(cmd.Context(), refs, access,
		func(idx int, set trait.Set) { r.ok(idx, set) }, r.fail)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeBatch, "traits failed", err)
	}
	return writeBatch(s.out, r)
}

// NewPolicyCommand creates the policy command.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "policy <traits>...",
		Short: "Query the management policy for trait sets",
		Long: `Query the management policy for each trait set. Each argument is one
comma separated trait set.

Examples:
  bal policy string locatableContent,image --access write`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicy(opts, args, cmd)
		},
	}
	addAccessFlag(cmd, &opts.Access, ref.Read)

	return cmd
}

func runPolicy(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	access, err := parseAccess(opts.Access)
	if err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	policies, err := s.manager.ManagementPolicy(cmd.Context(), parseTraitSets(args), access)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeBatch, "policy failed", err)
	}

	r := newBatchResult("policy", access, args)
	for i, p := range policies {
		r.ok(i, p)
	}
	return writeBatch(s.out, r)
}

// NewDefaultCommand creates the default command.
func NewDefaultCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "default <traits>...",
		Short: "Query the default entity reference for trait sets",
		Long: `Query the default entity reference for each comma separated trait set.

Examples:
  bal default string --access write`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefault(opts, args, cmd)
		},
	}
	addAccessFlag(cmd, &opts.Access, ref.Read)

	return cmd
}

func runDefault(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	access, err := parseAccess(opts.Access)
	if err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	r := newBatchResult("default", access, args)
	err = s.manager.DefaultEntityReference(cmd.Context(), parseTraitSets(args), access,
		func(idx int, reference string) { r.ok(idx, reference) }, r.fail)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeBatch, "default failed", err)
	}
	return writeBatch(s.out, r)
}

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	QueryOptions
	Data      string
	Preflight bool
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "register <ref>...",
		Short: "Publish trait data as a new entity version",
		Long: `Publish the same trait data to each reference, creating a new version.
Each element is validated against the library as left by the previous one.

Publications only outlive the process with --journal.

Examples:
  bal register bal:///shot --data '{"string": {"value": "take two"}}' --journal bal.db
  bal register bal:///shot --data '{"string": {}}' --preflight`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, args, cmd)
		},
	}
	addAccessFlag(cmd, &opts.Access, ref.Write)
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "{}", "trait data as JSON")
	cmd.Flags().BoolVar(&opts.Preflight, "preflight", false, "only check the data could be published")

	return cmd
}

func runRegister(opts *RegisterOptions, refs []string, cmd *cobra.Command) error {
	access, err := parseAccess(opts.Access)
	if err != nil {
		return err
	}
	data, err := parseTraitData("data", opts.Data)
	if err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	datas := make([]trait.Data, len(refs))
	for i := range datas {
		datas[i] = data.Clone()
	}

	op, call := "register", s.manager.Register
	if opts.Preflight {
		op, call = "preflight", s.manager.Preflight
	}

	r := newBatchResult(op, access, refs)
	err = call(cmd.Context(), refs, datas, access,
		func(idx int, reference string) { r.ok(idx, reference) }, r.fail)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeBatch, op+" failed", err)
	}
	return writeBatch(s.out, r)
}

// RelatedOptions holds flags for the related command.
type RelatedOptions struct {
	QueryOptions
	Relationships []string
	ResultTraits  []string
	PageSize      int
}

// NewRelatedCommand creates the related command.
func NewRelatedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RelatedOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "related <ref>...",
		Short: "Query related entity references",
		Long: `Query entities related to each reference by a relationship trait pattern.

With one --relationship every reference is queried; with several, exactly
one reference must be given and each relationship is queried for it.
Results are fetched page by page using --page-size.

Examples:
  bal related bal:///shot --relationship '{"proxy": {}}'
  bal related bal:///shot --relationship '{"openassetio-mediacreation:usage.Relationship": {},
    "openassetio-mediacreation:lifecycle.Version": {}}'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelated(opts, args, cmd)
		},
	}
	addAccessFlag(cmd, &opts.Access, ref.Read)
	cmd.Flags().StringArrayVarP(&opts.Relationships, "relationship", "r", nil, "relationship trait data as JSON (repeatable)")
	cmd.Flags().StringSliceVar(&opts.ResultTraits, "result-traits", nil, "only return entities with these traits")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 10, "references fetched per page")
	_ = cmd.MarkFlagRequired("relationship")

	return cmd
}

func runRelated(opts *RelatedOptions, refs []string, cmd *cobra.Command) error {
	access, err := parseAccess(opts.Access)
	if err != nil {
		return err
	}
	if opts.PageSize < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--page-size must be greater than zero, got %d", opts.PageSize))
	}
	if len(opts.Relationships) > 1 && len(refs) != 1 {
		return NewExitError(ExitCommandError, "several --relationship flags need exactly one reference")
	}

	relationships := make([]trait.Data, len(opts.Relationships))
	for i, raw := range opts.Relationships {
		if relationships[i], err = parseTraitData("relationship", raw); err != nil {
			return err
		}
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	resultSet := trait.NewSet(opts.ResultTraits...)
	onSuccess := func(r *BatchResult) func(int, *manager.Pager) {
		return func(idx int, p *manager.Pager) {
			found, pages := drain(p)
			s.out.VerboseLog("Element %d: %d reference(s) in %d page(s)", idx, len(found), pages)
			r.ok(idx, found)
		}
	}

	var r *BatchResult
	if len(relationships) == 1 {
		r = newBatchResult("related", access, refs)
		err = s.manager.GetWithRelationship(cmd.Context(), refs, relationships[0], opts.PageSize,
			access, resultSet, onSuccess(r), r.fail)
	} else {
		r = newBatchResult("related", access, opts.Relationships)
		err = s.manager.GetWithRelationships(cmd.Context(), refs[0], relationships, opts.PageSize,
			access, resultSet, onSuccess(r), r.fail)
	}
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeBatch, "related failed", err)
	}
	return writeBatch(s.out, r)
}

// drain reads every page of p, returning the references and page count.
func drain(p *manager.Pager) ([]string, int) {
	refs := p.Get()
	pages := 1
	for p.HasNext() {
		p.Next()
		refs = append(refs, p.Get()...)
		pages++
	}
	return refs, pages
}
