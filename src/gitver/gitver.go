// Package gitver reads version metadata from a package's source checkout.
// It supplies the build-time package.* bindings derived from git: the
// revision, the branch and, when HEAD is tagged, the semantic version.
package gitver

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// VersionInfo holds resolved version metadata from git.
type VersionInfo struct {
	Version    string // "1.2.3", "1.2.3-rc.1", or "" when HEAD carries no semver tag
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
	Tag        string // the tag Version was read from, e.g. "v1.2.3"
	SHA        string // abbreviated to 7 characters
	Branch     string // "HEAD" when detached
	IsRelease  bool   // HEAD is exactly at a semver tag
}

// DetectVersion resolves version info for the checkout containing dir.
func DetectVersion(dir string) (*VersionInfo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}

	v := &VersionInfo{
		SHA:    head.Hash().String()[:7],
		Branch: "HEAD",
	}
	if head.Name().IsBranch() {
		v.Branch = head.Name().Short()
	}

	tag, ver, err := headTag(repo, head.Hash())
	if err != nil {
		return nil, err
	}
	if ver != nil {
		v.Tag = tag
		v.Version = ver.String()
		v.Major, v.Minor, v.Patch = ver.Major(), ver.Minor(), ver.Patch()
		v.Prerelease = ver.Prerelease()
		v.IsRelease = true
	}
	return v, nil
}

// headTag returns the highest semver tag pointing at hash. Annotated tags are
// peeled to their commit. Non-semver tags are ignored.
func headTag(repo *git.Repository, hash plumbing.Hash) (string, *semver.Version, error) {
	iter, err := repo.Tags()
	if err != nil {
		return "", nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	var (
		bestName string
		best     *semver.Version
	)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if obj, terr := repo.TagObject(ref.Hash()); terr == nil {
			target = obj.Target
		}
		if target != hash {
			return nil
		}

		name := ref.Name().Short()
		ver, perr := semver.NewVersion(name)
		if perr != nil {
			return nil
		}
		if best == nil || ver.GreaterThan(best) {
			bestName, best = name, ver
		}
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("reading tags: %w", err)
	}
	return bestName, best, nil
}

// MajorMinor returns "major.minor", or "" without a version.
func (v *VersionInfo) MajorMinor() string {
	if v.Version == "" {
		return ""
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Bindings returns the package.* values contributed by git. Version keys are
// present only when HEAD is tagged.
func (v *VersionInfo) Bindings() map[string]any {
	b := map[string]any{
		"revision": v.SHA,
		"branch":   v.Branch,
	}
	if v.Version != "" {
		b["version"] = v.Version
		b["full_version"] = v.Version
		b["major_minor"] = v.MajorMinor()
		b["tag"] = v.Tag
	}
	return b
}

// ParseBinding splits a key=value command-line binding. Dotted keys nest:
// "source.url=https://..." becomes {"source": {"url": "https://..."}}.
func ParseBinding(into map[string]any, kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("binding %q: expected key=value", kv)
	}
	segs := strings.Split(key, ".")
	cur := into
	for _, seg := range segs[:len(segs)-1] {
		next, isMap := cur[seg].(map[string]any)
		if !isMap {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
	return nil
}
