// Package catalog holds the marketplace datasets and answers search queries.
package catalog

import (
	"crypto/sha256"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"medmarket/core/logging"
	"medmarket/core/validation"
	"medmarket/types/ids"
)

//go:embed datasets.yaml
var seedYAML []byte

const (
	// PageSize is the number of datasets per result page.
	PageSize = 6
	// DefaultMaxPrice is the price ceiling applied when a query sets none.
	DefaultMaxPrice = 0.1
)

var (
	ErrNotFound  = errors.New("dataset not found")
	ErrNoSeller  = errors.New("seller wallet required")
	ErrDuplicate = errors.New("dataset id already exists")
)

// Dataset is a health dataset offered on the marketplace.
type Dataset struct {
	ID            string     `yaml:"id" json:"id"`
	Name          string     `yaml:"name" json:"name"`
	Description   string     `yaml:"description" json:"description"`
	Type          string     `yaml:"type" json:"type"`
	Size          string     `yaml:"size" json:"size"`
	Price         float64    `yaml:"price" json:"price"`
	Seller        string     `yaml:"seller" json:"seller"`
	Rating        float64    `yaml:"rating" json:"rating"`
	Reviews       int        `yaml:"reviews" json:"reviews"`
	Samples       int        `yaml:"samples" json:"samples"`
	Verified      bool       `yaml:"verified" json:"verified"`
	PurchaseCount int        `yaml:"purchaseCount" json:"purchaseCount"`
	Tags          []string   `yaml:"tags" json:"tags"`
	DataPoints    []string   `yaml:"dataPoints" json:"dataPoints"`
	DataHash      string     `yaml:"-" json:"dataHash"`
	Anonymization string     `yaml:"-" json:"anonymizationLevel,omitempty"`
	Created       *time.Time `yaml:"-" json:"created,omitempty"`
}

func (d Dataset) clone() Dataset {
	d.Tags = append([]string(nil), d.Tags...)
	d.DataPoints = append([]string(nil), d.DataPoints...)
	return d
}

func (d Dataset) matches(text string) bool {
	if text == "" {
		return true
	}
	if strings.Contains(strings.ToLower(d.Name), text) || strings.Contains(strings.ToLower(d.Description), text) {
		return true
	}
	for _, tag := range d.Tags {
		if strings.Contains(strings.ToLower(tag), text) {
			return true
		}
	}
	return false
}

// Query filters a catalog search. Zero values mean "no filter", except
// MaxPrice which falls back to DefaultMaxPrice.
type Query struct {
	Text         string
	Types        []string
	MaxPrice     float64
	MinRating    float64
	VerifiedOnly bool
	Page         int
}

// Page is one page of search results.
type Page struct {
	Datasets   []Dataset `json:"datasets"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
	Total      int       `json:"total"`
}

// Catalog is the in-process dataset store. It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	datasets []Dataset // seed order, published datasets appended
	byID     map[string]int
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Catalog)

func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// WithNow sets the clock used to stamp published datasets.
func WithNow(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// Load builds a catalog from the embedded seed.
func Load(opts ...Option) (*Catalog, error) {
	seed, err := ParseSeed(seedYAML)
	if err != nil {
		return nil, err
	}
	return New(seed, opts...)
}

// ParseSeed decodes a YAML dataset list.
func ParseSeed(raw []byte) ([]Dataset, error) {
	var seed []Dataset
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode dataset seed: %w", err)
	}
	return seed, nil
}

// New builds a catalog holding datasets in the given order.
func New(datasets []Dataset, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		byID: make(map[string]int, len(datasets)),
		log:  logging.Discard(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, d := range datasets {
		if err := c.insertLocked(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) insertLocked(d Dataset) error {
	if d.ID == "" {
		return fmt.Errorf("dataset %q has no id", d.Name)
	}
	if _, exists := c.byID[d.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, d.ID)
	}
	if d.DataHash == "" {
		d.DataHash = contentHash(d)
	}
	c.byID[d.ID] = len(c.datasets)
	c.datasets = append(c.datasets, d)
	return nil
}

// contentHash stands in for the on-chain fingerprint of a dataset.
func contentHash(d Dataset) string {
	sum := sha256.Sum256([]byte(d.ID + "\x00" + d.Name + "\x00" + d.Seller))
	return ids.Hash(sum).String()
}

// Get returns a dataset by id.
func (c *Catalog) Get(id string) (Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return Dataset{}, false
	}
	return c.datasets[i].clone(), true
}

// Types returns the distinct dataset types in first-seen order.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	out := []string{}
	for _, d := range c.datasets {
		if !seen[d.Type] {
			seen[d.Type] = true
			out = append(out, d.Type)
		}
	}
	return out
}

// Search applies q and returns the requested page. Pages are 1-based; a page
// past the end is empty but still reports the totals.
func (c *Catalog) Search(q Query) Page {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	maxPrice := q.MaxPrice
	if maxPrice <= 0 {
		maxPrice = DefaultMaxPrice
	}
	types := make(map[string]bool, len(q.Types))
	for _, t := range q.Types {
		types[t] = true
	}

	c.mu.RLock()
	var hits []Dataset
	for _, d := range c.datasets {
		if !d.matches(text) {
			continue
		}
		if len(types) > 0 && !types[d.Type] {
			continue
		}
		if d.Price > maxPrice || d.Rating < q.MinRating {
			continue
		}
		if q.VerifiedOnly && !d.Verified {
			continue
		}
		hits = append(hits, d.clone())
	}
	c.mu.RUnlock()

	page := q.Page
	if page < 1 {
		page = 1
	}
	res := Page{
		Datasets:   []Dataset{},
		Page:       page,
		Total:      len(hits),
		TotalPages: int(math.Ceil(float64(len(hits)) / PageSize)),
	}
	start := (page - 1) * PageSize
	if start < len(hits) {
		end := min(start+PageSize, len(hits))
		res.Datasets = hits[start:end]
	}
	return res
}

// Publish adds a validated listing as an unverified dataset sold by seller.
func (c *Catalog) Publish(l *validation.Listing, seller string) (Dataset, error) {
	if seller == "" {
		return Dataset{}, ErrNoSeller
	}
	d := Dataset{
		ID:            "dataset-" + uuid.NewString(),
		Name:          l.Name,
		Description:   l.Description,
		Type:          l.Category,
		Size:          FormatSize(l.TotalSize()),
		Price:         l.Price,
		Seller:        seller,
		Tags:          append([]string(nil), l.Tags...),
		DataPoints:    fileNames(l.Files),
		Anonymization: l.AnonymizationLevel,
	}
	created := c.now().UTC()
	d.Created = &created

	c.mu.Lock()
	err := c.insertLocked(d)
	if err == nil {
		d = c.datasets[c.byID[d.ID]].clone()
	}
	c.mu.Unlock()
	if err != nil {
		return Dataset{}, err
	}
	c.log.Info("[CATALOG] dataset published", "id", d.ID, "seller", seller, "price", d.Price)
	return d, nil
}

// RecordPurchase bumps the purchase counter of a dataset.
func (c *Catalog) RecordPurchase(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.datasets[i].PurchaseCount++
	return nil
}

// BySeller lists the datasets offered by a wallet, most recently added first.
func (c *Catalog) BySeller(seller string) []Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Dataset{}
	for i := len(c.datasets) - 1; i >= 0; i-- {
		if c.datasets[i].Seller == seller {
			out = append(out, c.datasets[i].clone())
		}
	}
	return out
}

func fileNames(files []validation.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

// FormatSize renders a byte count the way the upload form shows it.
func FormatSize(bytes int64) string {
	const unit = 1024
	switch {
	case bytes < unit:
		return fmt.Sprintf("%d B", bytes)
	case bytes < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(bytes)/unit)
	case bytes < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(unit*unit*unit))
	}
}

// Len is the number of datasets, published ones included.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.datasets)
}
