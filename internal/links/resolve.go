package links

import (
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// Resolver classifies occurrences into targets. It performs no I/O: the
// docs root is fixed at construction and source files are made absolute
// against it.
type Resolver struct {
	root string
}

// NewResolver returns a resolver that joins root-relative links ("/docs/x.md")
// and relative source paths to root. root should be absolute.
func NewResolver(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Resolved pairs an occurrence with its target.
type Resolved struct {
	Occurrence Occurrence
	Target     Target
}

// Resolve classifies occ. It always returns a target; malformed input becomes
// a TargetMalformed value.
func (r *Resolver) Resolve(occ Occurrence) Target {
	raw := strings.TrimSpace(occ.Raw)
	if strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">") {
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	if raw == "" {
		return Target{Kind: TargetMalformed, Raw: raw, Reason: "empty target"}
	}

	// Same-document anchor.
	if strings.HasPrefix(raw, "#") {
		t := Target{Kind: TargetLocalPath, Path: r.absSource(occ.SourceFile)}
		setFragment(&t, raw[1:])
		return t
	}

	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{Kind: TargetMalformed, Raw: raw, Reason: trimURLError(err)}
	}

	scheme := strings.ToLower(u.Scheme)
	switch {
	case scheme == "http" || scheme == "https":
		return r.resolveHTTP(u, scheme, raw)
	case scheme == "file":
		t := Target{Kind: TargetLocalPath, Path: filepath.Clean(filepath.FromSlash(u.Path))}
		setFragment(&t, u.EscapedFragment())
		return t
	case len(scheme) == 1:
		// Windows drive letter, e.g. C:\docs\x.md.
		return r.resolveLocal(occ, raw)
	case scheme != "":
		return Target{Kind: TargetIgnored, Scheme: scheme}
	default:
		return r.resolveLocal(occ, raw)
	}
}

func (r *Resolver) resolveHTTP(u *url.URL, scheme, raw string) Target {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Target{Kind: TargetMalformed, Raw: raw, Reason: "missing host"}
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	norm := *u
	norm.Scheme = scheme
	norm.Host = host
	norm.Fragment = ""
	norm.RawFragment = ""

	t := Target{Kind: TargetHTTP, URL: norm.String()}
	setFragment(&t, u.EscapedFragment())
	return t
}

func (r *Resolver) resolveLocal(occ Occurrence, raw string) Target {
	pathPart, fragment, _ := strings.Cut(raw, "#")
	pathPart, _, _ = strings.Cut(pathPart, "?")

	if unescaped, err := url.PathUnescape(pathPart); err == nil {
		pathPart = unescaped
	}

	var abs string
	switch {
	case pathPart == "":
		abs = r.absSource(occ.SourceFile)
	case filepath.IsAbs(pathPart) && filepath.VolumeName(pathPart) != "":
		abs = filepath.Clean(pathPart)
	case strings.HasPrefix(pathPart, "/"):
		abs = filepath.Join(r.root, filepath.FromSlash(pathPart))
	default:
		dir := filepath.Dir(r.absSource(occ.SourceFile))
		abs = filepath.Join(dir, filepath.FromSlash(pathPart))
	}

	t := Target{Kind: TargetLocalPath, Path: abs}
	setFragment(&t, fragment)
	return t
}

func (r *Resolver) absSource(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.root, path)
}

func setFragment(t *Target, escaped string) {
	if escaped == "" {
		return
	}
	frag := escaped
	if unescaped, err := url.PathUnescape(escaped); err == nil {
		frag = unescaped
	}
	t.Fragment = frag
	t.HasFragment = true
}

func trimURLError(err error) string {
	if uerr, ok := err.(*url.Error); ok {
		return uerr.Err.Error()
	}
	return err.Error()
}
