// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata looks up title, abstract, venue, discipline, and
// source-tier hints for a resolved identifier. A failed lookup surfaces
// as ErrUnavailable so callers receive an explicit absence, never a
// silently substituted default from a prior run.
package metadata

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/thebeakers/triage-engine/internal/httputil"
	"github.com/thebeakers/triage-engine/pkg/types"
)

// Base URLs for metadata lookup. Declared as vars so tests can
// substitute httptest servers.
var (
	openAlexAPIBase  = "https://api.openalex.org/works/"
	crossrefAPIBase  = "https://api.crossref.org/works/"
	unpaywallAPIBase = "https://api.unpaywall.org/v2/"
	arxivAPIBase     = "https://export.arxiv.org/api/query"
)

// ErrUnavailable indicates a transient lookup failure. Callers may retry;
// they must not score or classify against a zeroed snapshot.
var ErrUnavailable = errors.New("metadata: lookup unavailable")

// Client queries the external metadata APIs.
type Client struct {
	http *http.Client
	cfg  types.MetadataConfig
}

// NewClient builds a lookup client from the stage configuration.
func NewClient(cfg types.MetadataConfig) *Client {
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Lookup fetches the metadata snapshot for a resolved identifier.
// DOIs go to OpenAlex with a Crossref fallback, then pick up open-access
// hints from Unpaywall when an email is configured. arXiv IDs use the
// arXiv Atom API and are preprint-tier by definition. PMCIDs resolve via
// OpenAlex and carry a repository-manuscript hint.
func (c *Client) Lookup(ctx context.Context, id types.CanonicalID) (*types.CandidateMeta, error) {
	switch id.Kind {
	case types.KindDOI:
		return c.lookupDOI(ctx, id.Value)
	case types.KindArxiv:
		return c.lookupArxiv(ctx, id.Value)
	case types.KindPMCID:
		return c.lookupPMC(ctx, id.Value)
	default:
		return nil, fmt.Errorf("cannot look up unresolved identifier %s", id)
	}
}

func (c *Client) lookupDOI(ctx context.Context, doi string) (*types.CandidateMeta, error) {
	meta, err := c.openAlexWork(ctx, "https://doi.org/"+doi)
	if err != nil {
		// Crossref carries less, but keeps the snapshot explicit.
		meta, err = c.crossrefWork(ctx, doi)
		if err != nil {
			return nil, err
		}
	}

	if c.cfg.UnpaywallEmail != "" {
		if hints, err := c.unpaywallHints(ctx, doi); err == nil {
			meta.Hints = mergeHints(meta.Hints, hints)
		}
		// Unpaywall failure keeps whatever OpenAlex declared; the hints
		// only ever widen, never substitute.
	}
	return meta, nil
}

func (c *Client) lookupArxiv(ctx context.Context, arxivID string) (*types.CandidateMeta, error) {
	apiURL := fmt.Sprintf("%s?id_list=%s", arxivAPIBase, url.QueryEscape(arxivID))
	body, err := c.get(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: parsing arXiv response: %v", ErrUnavailable, err)
	}
	if len(feed.Entries) == 0 {
		return nil, fmt.Errorf("%w: no arXiv entry for %s", ErrUnavailable, arxivID)
	}

	entry := feed.Entries[0]
	title := strings.TrimSpace(entry.Title)
	abstract := strings.TrimSpace(entry.Summary)
	return &types.CandidateMeta{
		Title:      title,
		Abstract:   abstract,
		Venue:      "arXiv",
		Discipline: InferDiscipline(title, abstract, ""),
		Hints: types.SourceHints{
			PreprintServer: true,
			Evidence:       "arxiv_api",
		},
	}, nil
}

func (c *Client) lookupPMC(ctx context.Context, pmcid string) (*types.CandidateMeta, error) {
	meta, err := c.openAlexWork(ctx, "pmcid:"+pmcid)
	if err != nil {
		return nil, err
	}
	// PubMed Central is an author-manuscript repository.
	meta.Hints.RepositoryManuscript = true
	if meta.Hints.Evidence == "" {
		meta.Hints.Evidence = "pmc_repository"
	}
	return meta, nil
}

// --- OpenAlex ---

type openAlexWork struct {
	Title           string           `json:"title"`
	AbstractIndex   map[string][]int `json:"abstract_inverted_index"`
	PrimaryLocation *openAlexSource  `json:"primary_location"`
	OpenAccess      *openAlexOA      `json:"open_access"`
	Concepts        []openAlexTopic  `json:"concepts"`
}

type openAlexSource struct {
	Source *struct {
		DisplayName string `json:"display_name"`
		Type        string `json:"type"`
	} `json:"source"`
	License string `json:"license"`
}

type openAlexOA struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
}

type openAlexTopic struct {
	DisplayName string  `json:"display_name"`
	Level       int     `json:"level"`
	Score       float64 `json:"score"`
}

func (c *Client) openAlexWork(ctx context.Context, workID string) (*types.CandidateMeta, error) {
	apiURL := openAlexAPIBase + workID
	if c.cfg.OpenAlexEmail != "" {
		apiURL += "?mailto=" + url.QueryEscape(c.cfg.OpenAlexEmail)
	}
	body, err := c.get(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var work openAlexWork
	if err := json.Unmarshal(body, &work); err != nil {
		return nil, fmt.Errorf("%w: parsing OpenAlex response: %v", ErrUnavailable, err)
	}

	venue := ""
	hints := types.SourceHints{}
	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		venue = work.PrimaryLocation.Source.DisplayName
		if work.PrimaryLocation.Source.Type == "repository" {
			hints.RepositoryManuscript = true
		}
	}
	if work.OpenAccess != nil && work.OpenAccess.IsOA {
		// "gold" and "hybrid" mean an openly licensed publisher copy;
		// "green" means a repository copy.
		switch work.OpenAccess.OAStatus {
		case "green":
			hints.RepositoryManuscript = true
		default:
			hints.OpenLicense = true
		}
		hints.Evidence = "openalex:" + work.OpenAccess.OAStatus
	} else if hints.Evidence == "" {
		hints.Evidence = "openalex:closed"
	}

	abstract := ReconstructAbstract(work.AbstractIndex)
	return &types.CandidateMeta{
		Title:      work.Title,
		Abstract:   abstract,
		Venue:      venue,
		Discipline: disciplineFromConcepts(work.Concepts, work.Title, abstract),
		Hints:      hints,
	}, nil
}

// --- Crossref ---

type crossrefResponse struct {
	Message struct {
		Title          []string `json:"title"`
		Abstract       string   `json:"abstract"`
		ContainerTitle []string `json:"container-title"`
	} `json:"message"`
}

func (c *Client) crossrefWork(ctx context.Context, doi string) (*types.CandidateMeta, error) {
	body, err := c.get(ctx, crossrefAPIBase+url.PathEscape(doi))
	if err != nil {
		return nil, err
	}

	var cr crossrefResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("%w: parsing Crossref response: %v", ErrUnavailable, err)
	}

	title, venue := "", ""
	if len(cr.Message.Title) > 0 {
		title = cr.Message.Title[0]
	}
	if len(cr.Message.ContainerTitle) > 0 {
		venue = cr.Message.ContainerTitle[0]
	}
	abstract := stripJATS(cr.Message.Abstract)
	return &types.CandidateMeta{
		Title:      title,
		Abstract:   abstract,
		Venue:      venue,
		Discipline: InferDiscipline(title, abstract, ""),
		Hints:      types.SourceHints{Evidence: "crossref"},
	}, nil
}

// --- Unpaywall ---

type unpaywallResponse struct {
	BestOALocation *struct {
		URLForPDF string `json:"url_for_pdf"`
		HostType  string `json:"host_type"`
		License   string `json:"license"`
	} `json:"best_oa_location"`
}

func (c *Client) unpaywallHints(ctx context.Context, doi string) (types.SourceHints, error) {
	apiURL := unpaywallAPIBase + url.PathEscape(doi) + "?email=" + url.QueryEscape(c.cfg.UnpaywallEmail)
	body, err := c.get(ctx, apiURL)
	if err != nil {
		return types.SourceHints{}, err
	}

	var up unpaywallResponse
	if err := json.Unmarshal(body, &up); err != nil {
		return types.SourceHints{}, fmt.Errorf("%w: parsing Unpaywall response: %v", ErrUnavailable, err)
	}

	best := up.BestOALocation
	if best == nil {
		return types.SourceHints{Evidence: "unpaywall:no_oa_found"}, nil
	}
	hints := types.SourceHints{Evidence: "unpaywall:" + best.HostType}
	if best.HostType == "repository" {
		hints.RepositoryManuscript = true
	} else if best.URLForPDF != "" {
		hints.OpenLicense = true
	}
	return hints, nil
}

// mergeHints widens a with the flags set in b; a's evidence wins when set.
func mergeHints(a, b types.SourceHints) types.SourceHints {
	a.PreprintServer = a.PreprintServer || b.PreprintServer
	a.OpenLicense = a.OpenLicense || b.OpenLicense
	a.RepositoryManuscript = a.RepositoryManuscript || b.RepositoryManuscript
	if a.Evidence == "" {
		a.Evidence = b.Evidence
	}
	return a
}

// --- shared HTTP ---

// get performs a GET with retry on rate limiting and maps every failure
// mode onto ErrUnavailable.
func (c *Client) get(ctx context.Context, apiURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUnavailable, resp.StatusCode, apiURL)
	}
	return readAll(resp.Body)
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}
