package config

import (
	"fmt"
	"maps"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/state"
)

// Merge builds the effective desired state from main overlaid on defaults.
//
// Precedence is per field: for every (kind, id, key) declared in both
// documents the main value wins, and keys only present in defaults are kept.
// Lists are replaced wholesale, an empty list included. Mappings merge key by
// key with the same precedence. defaults may be nil.
func Merge(main, defaults *Document) (*state.State, error) {
	if main == nil {
		return nil, errors.NewValidationError("document", nil, "main document is required")
	}
	if defaults == nil {
		defaults = &Document{}
	}
	org := main.Org
	if org == "" {
		org = defaults.Org
	}
	if org == "" {
		return nil, errors.NewResourceValidationError(string(state.KindOrganization), "", "org", "organization name is required")
	}

	base, err := collect(defaults, org)
	if err != nil {
		return nil, err
	}
	over, err := collect(main, org)
	if err != nil {
		return nil, err
	}
	merged := base.overlay(over)

	webhook, _ := mergeValue(main.DefaultWebhook, defaults.DefaultWebhook).(map[string]any)
	protections := main.DefaultBranchProtections
	if protections == nil {
		protections = defaults.DefaultBranchProtections
	}
	if err := merged.applyRepoDefaults(org, webhook, protections); err != nil {
		return nil, err
	}
	if err := merged.validate(); err != nil {
		return nil, err
	}

	b := state.NewBuilder(org)
	for _, ref := range merged.order {
		if err := b.Add(merged.byRef[ref]); err != nil {
			return nil, errors.NewResourceValidationError(string(ref.Kind), ref.ID, "", err.Error())
		}
	}
	return b.Build(), nil
}

// instanceSet keeps declaration order so error messages follow the document.
type instanceSet struct {
	order []state.Ref
	byRef map[state.Ref]state.Instance
}

func newInstanceSet() *instanceSet {
	return &instanceSet{byRef: map[state.Ref]state.Instance{}}
}

func (s *instanceSet) add(inst state.Instance) error {
	ref := inst.Ref()
	if _, dup := s.byRef[ref]; dup {
		return errors.NewResourceValidationError(string(inst.Kind), inst.ID, inst.Kind.Identity()[0], "declared more than once")
	}
	s.order = append(s.order, ref)
	s.byRef[ref] = inst
	return nil
}

// overlay returns a new set holding s with o's instances merged on top.
func (s *instanceSet) overlay(o *instanceSet) *instanceSet {
	out := newInstanceSet()
	for _, ref := range s.order {
		out.order = append(out.order, ref)
		out.byRef[ref] = s.byRef[ref]
	}
	for _, ref := range o.order {
		top := o.byRef[ref]
		below, ok := out.byRef[ref]
		if !ok {
			out.order = append(out.order, ref)
			out.byRef[ref] = top
			continue
		}
		fields := maps.Clone(below.Fields)
		if fields == nil {
			fields = map[string]any{}
		}
		for k, v := range top.Fields {
			fields[k] = mergeValue(v, below.Fields[k])
		}
		keys := maps.Clone(below.Keys)
		maps.Copy(keys, top.Keys)
		out.byRef[ref] = state.Instance{Kind: ref.Kind, ID: ref.ID, Keys: keys, Fields: fields}
	}
	return out
}

// mergeValue returns top with nested mappings filled in from below.
// Anything else in top, lists included, wins as-is.
func mergeValue(top, below any) any {
	tm, ok := top.(map[string]any)
	if !ok {
		return top
	}
	bm, _ := below.(map[string]any)
	if tm == nil && bm == nil {
		return nil
	}
	out := make(map[string]any, len(bm)+len(tm))
	maps.Copy(out, bm)
	for k, v := range tm {
		out[k] = mergeValue(v, bm[k])
	}
	return out
}

func (s *instanceSet) applyRepoDefaults(org string, webhook map[string]any, protections []map[string]any) error {
	if webhook == nil && len(protections) == 0 {
		return nil
	}
	hasHook := map[string]bool{}
	hasProtection := map[string]bool{}
	var repos []string
	for _, ref := range s.order {
		inst := s.byRef[ref]
		switch ref.Kind {
		case state.KindRepository:
			repos = append(repos, ref.ID)
		case state.KindWebhook:
			hasHook[inst.Keys[state.KeyRepo]] = true
		case state.KindBranchProtection:
			hasProtection[inst.Keys[state.KeyRepo]] = true
		}
	}
	for _, repo := range repos {
		if webhook != nil && !hasHook[repo] {
			inst, err := webhookInstance(org, repo, webhook)
			if err != nil {
				return err
			}
			if err := s.add(inst); err != nil {
				return err
			}
		}
		if hasProtection[repo] {
			continue
		}
		for _, rule := range protections {
			inst, err := protectionInstance(org, repo, rule)
			if err != nil {
				return err
			}
			if err := s.add(inst); err != nil {
				return err
			}
		}
	}
	return nil
}

// validate checks referential integrity of assignments.
func (s *instanceSet) validate() error {
	var errs []error
	for _, ref := range s.order {
		if ref.Kind != state.KindAssignment {
			continue
		}
		inst := s.byRef[ref]
		repo, team := inst.Keys[state.KeyRepo], inst.Keys[state.KeyTeam]
		if _, ok := s.byRef[state.Ref{Kind: state.KindRepository, ID: repo}]; !ok {
			errs = append(errs, errors.NewResourceValidationError(string(ref.Kind), ref.ID, "repo",
				fmt.Sprintf("references undeclared repository %q", repo)))
		}
		if _, ok := s.byRef[state.Ref{Kind: state.KindTeam, ID: team}]; !ok {
			errs = append(errs, errors.NewResourceValidationError(string(ref.Kind), ref.ID, "team",
				fmt.Sprintf("references undeclared team %q", team)))
		}
	}
	return errors.Join(errs...)
}

// collect turns a document into resource instances.
func collect(doc *Document, org string) (*instanceSet, error) {
	set := newInstanceSet()
	add := func(inst state.Instance, err error) error {
		if err != nil {
			return err
		}
		return set.add(inst)
	}

	if len(doc.Settings) > 0 {
		if err := add(state.Instance{
			Kind:   state.KindOrganization,
			ID:     org,
			Keys:   map[string]string{state.KeyOrg: org},
			Fields: maps.Clone(doc.Settings),
		}, nil); err != nil {
			return nil, err
		}
	}

	for _, r := range doc.Repos {
		if err := add(repoInstance(org, r)); err != nil {
			return nil, err
		}
		hooks := r.Webhooks
		if r.Webhook != nil {
			hooks = append([]map[string]any{r.Webhook}, hooks...)
		}
		for _, h := range hooks {
			if err := add(webhookInstance(org, r.Name, h)); err != nil {
				return nil, err
			}
		}
		for _, rule := range r.BranchProtections {
			if err := add(protectionInstance(org, r.Name, rule)); err != nil {
				return nil, err
			}
		}
	}

	for _, t := range doc.Teams {
		if err := add(teamInstance(org, t)); err != nil {
			return nil, err
		}
	}

	for _, u := range doc.Users {
		if err := add(userInstance(org, u)); err != nil {
			return nil, err
		}
	}

	for _, a := range doc.Assignments {
		if err := add(assignmentInstance(org, a)); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func repoInstance(org string, r Repo) (state.Instance, error) {
	if r.Name == "" {
		return state.Instance{}, errors.NewResourceValidationError(string(state.KindRepository), "", "name", "repository name is required")
	}
	fields := map[string]any{}
	maps.Copy(fields, r.Extra)
	maps.Copy(fields, r.Settings)
	if r.Visibility != "" {
		fields["visibility"] = r.Visibility
	}
	return state.Instance{
		Kind:   state.KindRepository,
		ID:     r.Name,
		Keys:   map[string]string{state.KeyOrg: org, state.KeyRepo: r.Name},
		Fields: fields,
	}, nil
}

func webhookInstance(org, repo string, hook map[string]any) (state.Instance, error) {
	url, _ := hook["url"].(string)
	if url == "" {
		return state.Instance{}, errors.NewResourceValidationError(string(state.KindWebhook), repo, "url", "webhook url is required")
	}
	fields := maps.Clone(hook)
	delete(fields, "url")
	return state.Instance{
		Kind:   state.KindWebhook,
		ID:     state.ID(repo, url),
		Keys:   map[string]string{state.KeyOrg: org, state.KeyRepo: repo, state.KeyURL: url},
		Fields: fields,
	}, nil
}

func protectionInstance(org, repo string, rule map[string]any) (state.Instance, error) {
	branch, _ := rule["pattern"].(string)
	if branch == "" {
		branch, _ = rule["branch"].(string)
	}
	if branch == "" {
		return state.Instance{}, errors.NewResourceValidationError(string(state.KindBranchProtection), repo, "pattern", "branch pattern is required")
	}
	fields := maps.Clone(rule)
	delete(fields, "pattern")
	delete(fields, "branch")
	return state.Instance{
		Kind:   state.KindBranchProtection,
		ID:     state.ID(repo, branch),
		Keys:   map[string]string{state.KeyOrg: org, state.KeyRepo: repo, state.KeyBranch: branch},
		Fields: fields,
	}, nil
}

func teamInstance(org string, t Team) (state.Instance, error) {
	if t.Name == "" {
		return state.Instance{}, errors.NewResourceValidationError(string(state.KindTeam), "", "name", "team name is required")
	}
	fields := maps.Clone(t.Extra)
	if fields == nil {
		fields = map[string]any{}
	}
	if t.Members != nil {
		members := make([]any, len(t.Members))
		for i, m := range t.Members {
			members[i] = m
		}
		fields["members"] = members
	}
	return state.Instance{
		Kind:   state.KindTeam,
		ID:     t.Name,
		Keys:   map[string]string{state.KeyOrg: org, state.KeyTeam: t.Name, state.KeyTeamSlug: state.Slug(t.Name)},
		Fields: fields,
	}, nil
}

func userInstance(org string, u User) (state.Instance, error) {
	if u.Login == "" {
		return state.Instance{}, errors.NewResourceValidationError(string(state.KindUser), "", "login", "user login is required")
	}
	fields := maps.Clone(u.Extra)
	if fields == nil {
		fields = map[string]any{}
	}
	if u.Role != "" {
		fields["role"] = u.Role
	}
	return state.Instance{
		Kind:   state.KindUser,
		ID:     u.Login,
		Keys:   map[string]string{state.KeyOrg: org, state.KeyUser: u.Login},
		Fields: fields,
	}, nil
}

func assignmentInstance(org string, a Assignment) (state.Instance, error) {
	id := state.ID(a.Repo, a.Team)
	if a.Repo == "" {
		return state.Instance{}, errors.NewResourceValidationError(string(state.KindAssignment), id, "repo", "assignment repo is required")
	}
	if a.Team == "" {
		return state.Instance{}, errors.NewResourceValidationError(string(state.KindAssignment), id, "team", "assignment team is required")
	}
	fields := map[string]any{}
	if a.Permission != "" {
		fields["permission"] = a.Permission
	}
	return state.Instance{
		Kind: state.KindAssignment,
		ID:   id,
		Keys: map[string]string{
			state.KeyOrg:      org,
			state.KeyRepo:     a.Repo,
			state.KeyTeam:     a.Team,
			state.KeyTeamSlug: state.Slug(a.Team),
		},
		Fields: fields,
	}, nil
}
