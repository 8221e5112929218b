// Package generate inverts the fetcher: it turns a remote snapshot into a
// desired-state document that, merged and diffed against the same snapshot,
// yields no changes.
package generate

import (
	"cmp"
	"maps"
	"slices"

	"github.com/agentstation/orgsync/pkg/config"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
)

// Gap is a mapped field the snapshot holds no value for.
type Gap struct {
	Kind state.Kind `json:"kind" yaml:"kind"`
	ID   string     `json:"id" yaml:"id"`
	Key  string     `json:"key" yaml:"key"`
}

// Result is a generated document and its coverage gaps.
type Result struct {
	Document *config.Document
	Gaps     []Gap
}

// Generate builds a document from snapshot. Only fields the registry can read
// are emitted; unset (nil) values are left out so they stay undeclared.
func Generate(snapshot *state.State, reg *mapping.Registry) *Result {
	res := &Result{Document: &config.Document{Org: snapshot.Org()}}
	doc := res.Document

	fields := func(inst state.Instance) map[string]any {
		out := map[string]any{}
		for _, e := range reg.Entries(inst.Kind) {
			v, ok := inst.Fields[e.Key]
			if !ok {
				res.Gaps = append(res.Gaps, Gap{Kind: inst.Kind, ID: inst.ID, Key: e.Key})
				continue
			}
			if v != nil {
				out[e.Key] = state.Clone(v)
			}
		}
		return out
	}

	if org, ok := snapshot.Get(state.KindOrganization, snapshot.Org()); ok {
		if f := fields(org); len(f) > 0 {
			doc.Settings = f
		}
	}

	repos := map[string]*config.Repo{}
	for _, inst := range snapshot.Instances(state.KindRepository) {
		f := fields(inst)
		r := config.Repo{Name: inst.ID}
		if v, ok := f["visibility"].(string); ok {
			r.Visibility = v
			delete(f, "visibility")
		}
		if len(f) > 0 {
			r.Settings = f
		}
		doc.Repos = append(doc.Repos, r)
	}
	for i := range doc.Repos {
		repos[doc.Repos[i].Name] = &doc.Repos[i]
	}

	for _, inst := range snapshot.Instances(state.KindWebhook) {
		r, ok := repos[inst.Keys[state.KeyRepo]]
		if !ok {
			continue
		}
		hook := fields(inst)
		hook["url"] = inst.Keys[state.KeyURL]
		r.Webhooks = append(r.Webhooks, hook)
	}
	for _, inst := range snapshot.Instances(state.KindBranchProtection) {
		r, ok := repos[inst.Keys[state.KeyRepo]]
		if !ok {
			continue
		}
		rule := fields(inst)
		rule["pattern"] = inst.Keys[state.KeyBranch]
		r.BranchProtections = append(r.BranchProtections, rule)
	}
	for i := range doc.Repos {
		r := &doc.Repos[i]
		slices.SortFunc(r.Webhooks, byString("url"))
		slices.SortFunc(r.BranchProtections, byString("pattern"))
	}

	for _, inst := range snapshot.Instances(state.KindTeam) {
		f := fields(inst)
		t := config.Team{Name: inst.ID}
		if members, ok := f["members"]; ok {
			t.Members = state.SortedStrings(members)
			if t.Members == nil {
				t.Members = []string{}
			}
			delete(f, "members")
		}
		if len(f) > 0 {
			t.Extra = f
		}
		doc.Teams = append(doc.Teams, t)
	}

	for _, inst := range snapshot.Instances(state.KindUser) {
		f := fields(inst)
		u := config.User{Login: inst.ID}
		if role, ok := f["role"].(string); ok {
			u.Role = role
			delete(f, "role")
		}
		if len(f) > 0 {
			u.Extra = f
		}
		doc.Users = append(doc.Users, u)
	}

	for _, inst := range snapshot.Instances(state.KindAssignment) {
		f := fields(inst)
		a := config.Assignment{Repo: inst.Keys[state.KeyRepo], Team: inst.Keys[state.KeyTeam]}
		a.Permission, _ = f["permission"].(string)
		doc.Assignments = append(doc.Assignments, a)
	}
	slices.SortFunc(doc.Assignments, func(a, b config.Assignment) int {
		return cmp.Or(cmp.Compare(a.Team, b.Team), cmp.Compare(a.Repo, b.Repo))
	})

	return res
}

func byString(key string) func(a, b map[string]any) int {
	return func(a, b map[string]any) int {
		as, _ := a[key].(string)
		bs, _ := b[key].(string)
		return cmp.Compare(as, bs)
	}
}

// Counts returns the number of instances per kind in the document.
func (r *Result) Counts() map[state.Kind]int {
	doc := r.Document
	counts := map[state.Kind]int{
		state.KindRepository: len(doc.Repos),
		state.KindTeam:       len(doc.Teams),
		state.KindUser:       len(doc.Users),
		state.KindAssignment: len(doc.Assignments),
	}
	if len(doc.Settings) > 0 {
		counts[state.KindOrganization] = 1
	}
	for _, repo := range doc.Repos {
		counts[state.KindWebhook] += len(repo.Webhooks)
		counts[state.KindBranchProtection] += len(repo.BranchProtections)
	}
	maps.DeleteFunc(counts, func(_ state.Kind, n int) bool { return n == 0 })
	return counts
}
