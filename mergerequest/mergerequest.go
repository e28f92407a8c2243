// Package mergerequest discovers merge-request tags published by project
// peers in the local monorepo: annotated git tags named
// "merge-request/<id>", living under each peer's namespaced ref tree
// (spec.md §6).
package mergerequest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/bzz/radicle-peer/identity"
)

const tagPrefix = "merge-request/"

// ProjectPeer names the peer a tag tree belongs to. PeerID is nil for the
// local peer's own tags, set for a tracked remote.
type ProjectPeer struct {
	PeerID *identity.PeerID
}

func (p ProjectPeer) String() string {
	if p.PeerID == nil {
		return "local"
	}
	return p.PeerID.String()
}

// MergeRequest is one discovered merge-request tag.
type MergeRequest struct {
	ID      string
	Merged  bool
	Peer    ProjectPeer
	Message string
	Commit  plumbing.Hash
}

// List walks refs/namespaces/<project>/.../tags/merge-request/* for every
// peer in peers and returns every entry found, sorted by ID (then peer) for
// determinism. A matching ref that is not an annotated tag targeting a
// commit makes List fail with an error. Merged is always false: the local
// working copy has no way to know a tag's commit has landed upstream without walking history
// against a base, which spec.md §9 leaves open.
func List(repoPath string, project identity.URN, peers []ProjectPeer) ([]MergeRequest, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("mergerequest: open monorepo: %w", err)
	}

	var out []MergeRequest
	for _, p := range peers {
		refs, err := tagRefs(repo, project, p)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			mr, err := resolveTag(repo, ref, p)
			if err != nil {
				return nil, err
			}
			out = append(out, mr)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Peer.String() < out[j].Peer.String()
	})
	return out, nil
}

func namespacePrefix(project identity.URN, p ProjectPeer) string {
	if p.PeerID != nil {
		return fmt.Sprintf("refs/namespaces/%s/refs/remotes/%s/tags/%s", project.String(), p.PeerID.String(), tagPrefix)
	}
	return fmt.Sprintf("refs/namespaces/%s/refs/tags/%s", project.String(), tagPrefix)
}

func tagRefs(repo *git.Repository, project identity.URN, p ProjectPeer) ([]*plumbing.Reference, error) {
	prefix := namespacePrefix(project, p)

	iter, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("mergerequest: list references: %w", err)
	}
	defer iter.Close()

	var refs []*plumbing.Reference
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(ref.Name().String(), prefix) {
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mergerequest: walk references: %w", err)
	}
	return refs, nil
}

// resolveTag requires ref to point at an annotated tag object targeting a
// commit, mirroring the source's assert_eq!(tag.target_type(), Commit).
func resolveTag(repo *git.Repository, ref *plumbing.Reference, p ProjectPeer) (MergeRequest, error) {
	name := ref.Name().String()
	idx := strings.LastIndex(name, tagPrefix)
	id := name[idx+len(tagPrefix):]

	tagObj, err := repo.TagObject(ref.Hash())
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return MergeRequest{}, fmt.Errorf("mergerequest: tag %s is lightweight, want annotated", id)
	}
	if err != nil {
		return MergeRequest{}, fmt.Errorf("mergerequest: read tag %s: %w", id, err)
	}

	commit, err := tagObj.Commit()
	if err != nil {
		return MergeRequest{}, fmt.Errorf("mergerequest: tag %s does not target a commit: %w", id, err)
	}

	return MergeRequest{
		ID:      id,
		Merged:  false,
		Peer:    p,
		Message: strings.TrimSpace(tagObj.Message),
		Commit:  commit.Hash,
	}, nil
}
