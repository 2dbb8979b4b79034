package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	getter "github.com/hashicorp/go-getter"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultContentsAPI = "https://api.github.com/repos/cosmos/chain-registry/contents"
	DefaultRawBase     = "https://raw.githubusercontent.com/cosmos/chain-registry/master"
	gitRegistry        = "github.com/cosmos/chain-registry"

	maxBodySize = 8 << 20
)

// PrefixSource lists the known chains and their address prefixes.
type PrefixSource interface {
	ChainPrefixes(ctx context.Context) ([]models.ChainPrefixEntry, error)
}

// ChannelSource lists and fetches chain-registry _IBC files.
type ChannelSource interface {
	ListFiles(ctx context.Context, level models.NetworkLevel) ([]string, error)
	FetchFile(ctx context.Context, level models.NetworkLevel, name string) ([]byte, error)
}

func ibcDir(level models.NetworkLevel) string {
	if level == models.Testnet {
		return "testnets/_IBC"
	}
	return "_IBC"
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return body, nil
}

// HTTPPrefixSource reads a JSON array of ChainPrefixEntry from URL.
type HTTPPrefixSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPPrefixSource) ChainPrefixes(ctx context.Context) ([]models.ChainPrefixEntry, error) {
	body, err := get(ctx, s.Client, s.URL)
	if err != nil {
		return nil, err
	}
	var entries []models.ChainPrefixEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode chain prefixes: %w", err)
	}
	return entries, nil
}

// FileSource reads chain prefixes from a TOML file with [[chains]] tables.
type FileSource struct {
	Path string
}

func (s *FileSource) ChainPrefixes(ctx context.Context) ([]models.ChainPrefixEntry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read chain prefix file: %w", err)
	}
	var f prefixFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse chain prefix file: %w", err)
	}
	return f.Chains, nil
}

// GitHubSource lists _IBC files through the GitHub contents API and fetches
// them from raw.githubusercontent.com.
type GitHubSource struct {
	ContentsAPI string
	RawBase     string
	Client      *http.Client
}

func NewGitHubSource(timeout time.Duration) *GitHubSource {
	return &GitHubSource{
		ContentsAPI: DefaultContentsAPI,
		RawBase:     DefaultRawBase,
		Client:      &http.Client{Timeout: timeout},
	}
}

type contentEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *GitHubSource) ListFiles(ctx context.Context, level models.NetworkLevel) ([]string, error) {
	body, err := get(ctx, s.Client, strings.TrimSuffix(s.ContentsAPI, "/")+"/"+ibcDir(level))
	if err != nil {
		return nil, err
	}
	var entries []contentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode directory listing: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(e.Name, ".json") {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func (s *GitHubSource) FetchFile(ctx context.Context, level models.NetworkLevel, name string) ([]byte, error) {
	return get(ctx, s.Client, strings.TrimSuffix(s.RawBase, "/")+"/"+ibcDir(level)+"/"+name)
}

// GitSource keeps a go-getter checkout of the _IBC directories under Dir,
// one subdirectory per network level. A checkout older than StaleAfter is
// downloaded again; if that fails the old checkout keeps being served.
type GitSource struct {
	Dir        string
	StaleAfter time.Duration
	Timeout    time.Duration

	mu sync.Mutex
}

func (s *GitSource) levelDir(level models.NetworkLevel) string {
	return filepath.Join(s.Dir, string(level))
}

func (s *GitSource) ensure(ctx context.Context, level models.NetworkLevel) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := s.levelDir(level)
	info, statErr := os.Stat(dst)
	if statErr == nil && time.Since(info.ModTime()) < s.StaleAfter {
		return dst, nil
	}

	if err := s.download(ctx, level, dst); err != nil {
		if statErr == nil {
			log.Warn().Err(err).Str("dir", dst).Msg("Registry download failed, serving previous checkout")
			return dst, nil
		}
		return "", err
	}
	return dst, nil
}

func (s *GitSource) download(ctx context.Context, level models.NetworkLevel, dst string) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	src := gitRegistry + "//" + ibcDir(level)
	tmp := dst + ".download"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clear %s: %w", tmp, err)
	}

	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  tmp,
		Mode: getter.ClientModeDir,
		Detectors: []getter.Detector{
			&getter.GitHubDetector{},
		},
		Getters: map[string]getter.Getter{
			"git": &getter.GitGetter{},
		},
	}
	log.Info().Str("src", src).Str("dst", dst).Msg("Downloading IBC registry")
	if err := client.Get(); err != nil {
		return fmt.Errorf("failed to download registry: %w", err)
	}

	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}

func (s *GitSource) ListFiles(ctx context.Context, level models.NetworkLevel) ([]string, error) {
	dir, err := s.ensure(ctx, level)
	if err != nil {
		return nil, err
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	var names []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			names = append(names, f.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *GitSource) FetchFile(ctx context.Context, level models.NetworkLevel, name string) ([]byte, error) {
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid registry file name %q", name)
	}
	dir, err := s.ensure(ctx, level)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
