package admin

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/vegasarees/storefront/internal/catalog"
	apperrors "github.com/vegasarees/storefront/pkg/errors"
)

// Product change actions carried by product.changed events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionReset   = "reset"
)

// ChangePublisher announces catalog edits.
type ChangePublisher interface {
	PublishProductChanged(ctx context.Context, action string, id int64) error
}

// ProductInput is the admin form as submitted. Numbers arrive as text and
// Images is a comma-separated list.
type ProductInput struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	OldPrice    string `json:"old_price"`
	Discount    string `json:"discount"`
	Size        string `json:"size"`
	Fabric      string `json:"fabric"`
	Colour      string `json:"colour"`
	Occasion    string `json:"occasion"`
	Tag         string `json:"tag"`
	Description string `json:"description"`
	Images      string `json:"images"`
}

// Listing is the admin product table: the matching products and every tag
// in the catalog.
type Listing struct {
	Products []catalog.Product `json:"products"`
	Tags     []string          `json:"tags"`
}

// ProductService edits the catalog on behalf of a logged-in admin.
type ProductService struct {
	repo      catalog.Repository
	publisher ChangePublisher
	policy    *bluemonday.Policy
	logger    *slog.Logger
}

// NewProductService creates a ProductService. publisher may be nil.
func NewProductService(repo catalog.Repository, publisher ChangePublisher, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		policy:    bluemonday.UGCPolicy(),
		logger:    logger,
	}
}

// Build validates in and converts it to a catalog row.
func (s *ProductService) Build(in ProductInput) (*catalog.Product, error) {
	name := strings.TrimSpace(in.Name)
	price := strings.TrimSpace(in.Price)
	if name == "" || price == "" {
		return nil, apperrors.InvalidInput("Name and Price are required")
	}

	priceNum, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return nil, apperrors.InvalidInput("Price must be numeric")
	}

	p := &catalog.Product{
		Name:        name,
		Price:       priceNum,
		Size:        in.Size,
		Fabric:      in.Fabric,
		Colour:      in.Colour,
		Occasion:    in.Occasion,
		Tag:         in.Tag,
		Description: s.policy.Sanitize(in.Description),
		Images:      SplitImages(in.Images),
	}

	if v := strings.TrimSpace(in.OldPrice); v != "" {
		old, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, apperrors.InvalidInput("Old price must be numeric")
		}
		p.OldPrice = &old
	}
	if v := strings.TrimSpace(in.Discount); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, apperrors.InvalidInput("Discount must be numeric")
		}
		p.Discount = d
	}
	return p, nil
}

// SplitImages splits a comma-separated list, trimming entries and dropping
// empty ones.
func SplitImages(csv string) []string {
	out := []string{}
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Save creates a product, or replaces product editingID when it is non-zero.
func (s *ProductService) Save(ctx context.Context, in ProductInput, editingID int64) (*catalog.Product, error) {
	p, err := s.Build(in)
	if err != nil {
		return nil, err
	}

	action := ActionCreated
	if editingID != 0 {
		action = ActionUpdated
		p.ID = editingID
		err = s.repo.Update(ctx, p)
	} else {
		err = s.repo.Create(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product saved",
		slog.Int64("product_id", p.ID),
		slog.String("action", action),
	)
	s.publish(ctx, action, p.ID)
	return p, nil
}

// Delete removes product id.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "product deleted", slog.Int64("product_id", id))
	s.publish(ctx, ActionDeleted, id)
	return nil
}

// Reset empties the catalog and restarts product IDs at 1.
func (s *ProductService) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "product catalog reset")
	s.publish(ctx, ActionReset, 0)
	return nil
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id int64) (*catalog.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the products matching search and tag (see catalog.Search)
// together with every tag in the catalog.
func (s *ProductService) List(ctx context.Context, search, tag string) (Listing, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return Listing{}, err
	}
	return Listing{
		Products: catalog.Search(all, search, tag),
		Tags:     catalog.Tags(all),
	}, nil
}

func (s *ProductService) publish(ctx context.Context, action string, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProductChanged(ctx, action, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.changed event",
			slog.Int64("product_id", id),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
