package mergerequest

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/bzz/radicle-peer/identity"
)

func openTestRepo(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir := t.TempDir()

	wtFs := osfs.New(dir)
	dotGit := osfs.New(dir + "/.git")
	storer := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())

	repo, err := git.Init(storer, wtFs)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return repo, dir
}

func commitFile(t *testing.T, repo *git.Repository, name, content string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	f, err := wt.Filesystem.Create(name)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	f.Close()

	if _, err := wt.Add(name); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(0, 0)},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash
}

// createAnnotatedTag writes an annotated tag object directly at refName,
// bypassing repo.CreateTag (which only ever writes under refs/tags/<name>)
// so the test can place it under a namespaced peer tree.
func createAnnotatedTag(t *testing.T, repo *git.Repository, refName, tagName string, target plumbing.Hash, message string) {
	t.Helper()
	tag := &object.Tag{
		Name:       tagName,
		Tagger:     object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(0, 0)},
		Message:    message,
		TargetType: plumbing.CommitObject,
		Target:     target,
	}
	obj := repo.Storer.NewEncodedObject()
	if err := tag.Encode(obj); err != nil {
		t.Fatalf("encode tag: %v", err)
	}
	tagHash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("store tag object: %v", err)
	}
	ref := plumbing.NewHashReference(plumbing.ReferenceName(refName), tagHash)
	if err := repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("set reference: %v", err)
	}
}

func createLightweightTag(t *testing.T, repo *git.Repository, refName string, target plumbing.Hash) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.ReferenceName(refName), target)
	if err := repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("set reference: %v", err)
	}
}

func TestListFindsLocalAnnotatedTag(t *testing.T) {
	repo, dir := openTestRepo(t)
	commit := commitFile(t, repo, "README.md", "hello")

	var project identity.URN
	project[0] = 0xAB

	refName := fmt.Sprintf("refs/namespaces/%s/refs/tags/merge-request/7", project.String())
	createAnnotatedTag(t, repo, refName, "merge-request/7", commit, "please merge\n")

	got, err := List(dir, project, []ProjectPeer{{}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].ID != "7" {
		t.Errorf("ID = %q, want 7", got[0].ID)
	}
	if got[0].Merged {
		t.Error("Merged should always be false")
	}
	if got[0].Commit != commit {
		t.Errorf("Commit = %v, want %v", got[0].Commit, commit)
	}
	if got[0].Message != "please merge" {
		t.Errorf("Message = %q", got[0].Message)
	}
}

func TestListFindsRemotePeerTag(t *testing.T) {
	repo, dir := openTestRepo(t)
	commit := commitFile(t, repo, "README.md", "hello")

	var project identity.URN
	project[0] = 0xCD
	peerID := identity.NewPeerID([]byte("remote-peer-key"))

	refName := fmt.Sprintf("refs/namespaces/%s/refs/remotes/%s/tags/merge-request/1", project.String(), peerID.String())
	createAnnotatedTag(t, repo, refName, "merge-request/1", commit, "fix it\n")

	got, err := List(dir, project, []ProjectPeer{{PeerID: &peerID}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].Peer.PeerID == nil || *got[0].Peer.PeerID != peerID {
		t.Errorf("Peer = %+v, want %v", got[0].Peer, peerID)
	}
}

func TestListRejectsLightweightTag(t *testing.T) {
	repo, dir := openTestRepo(t)
	commit := commitFile(t, repo, "README.md", "hello")

	var project identity.URN
	project[0] = 0xEF

	refName := fmt.Sprintf("refs/namespaces/%s/refs/tags/merge-request/3", project.String())
	createLightweightTag(t, repo, refName, commit)

	_, err := List(dir, project, []ProjectPeer{{}})
	if err == nil {
		t.Fatal("expected an error for a lightweight tag")
	}
}

func TestListIgnoresUnrelatedNamespaces(t *testing.T) {
	repo, dir := openTestRepo(t)
	commit := commitFile(t, repo, "README.md", "hello")

	var project, other identity.URN
	project[0] = 0x01
	other[0] = 0x02

	refName := fmt.Sprintf("refs/namespaces/%s/refs/tags/merge-request/9", other.String())
	createAnnotatedTag(t, repo, refName, "merge-request/9", commit, "wrong project\n")

	got, err := List(dir, project, []ProjectPeer{{}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0", len(got))
	}
}
