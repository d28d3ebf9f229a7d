package service

import (
	"errors"
	"math"
	"time"

	"go-farm-market/internal/apperr"
	"go-farm-market/internal/model"
	"go-farm-market/internal/repository"
	"go-farm-market/internal/ws"
	"go-farm-market/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Caller is the authenticated identity supplied by the HTTP layer. The
// service trusts it and enforces only role/ownership rules.
type Caller struct {
	ID   uuid.UUID
	Role model.Role
}

// CreateProductRequest is the validated create-listing input.
type CreateProductRequest struct {
	Name              string   `json:"name" validate:"required"`
	Category          string   `json:"category"`
	Price             float64  `json:"price" validate:"gte=0"`
	Stock             float64  `json:"stock" validate:"gte=0"`
	LowStockThreshold *float64 `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

// UpdateProductRequest carries owner-initiated field changes. Nil fields are
// left untouched.
type UpdateProductRequest struct {
	Name              *string  `json:"name" validate:"omitempty,min=1"`
	Category          *string  `json:"category"`
	Price             *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock             *float64 `json:"stock" validate:"omitempty,gte=0"`
	LowStockThreshold *float64 `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

// PurchaseResult is the successful purchase response.
type PurchaseResult struct {
	Product       model.ProductView `json:"product"`
	LowStockAlert bool              `json:"low_stock_alert"`
}

type InventoryService interface {
	CreateProduct(caller Caller, req *CreateProductRequest, imagePaths []string) (*model.Product, error)
	UpdateProduct(productID uuid.UUID, caller Caller, req *UpdateProductRequest) (*model.Product, error)
	// DeleteProduct removes the product with its transactions and image rows,
	// returning the stored image filenames so the caller can unlink the files.
	DeleteProduct(productID uuid.UUID, caller Caller) ([]string, error)
	Purchase(productID uuid.UUID, caller Caller, quantity float64) (*PurchaseResult, error)
	ListProducts() ([]model.Product, error)
	ListLowStock(caller Caller) ([]model.Product, error)
	History(productID uuid.UUID, caller Caller, sinceDays *int) ([]model.TransactionResponse, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	txRepo      repository.TransactionRepository
	db          *gorm.DB
	notifier    LowStockNotifier
	hub         *ws.Hub
	now         func() time.Time
}

func NewInventoryService(pRepo repository.ProductRepository, tRepo repository.TransactionRepository, db *gorm.DB, notifier LowStockNotifier, hub *ws.Hub) InventoryService {
	return &inventoryService{
		productRepo: pRepo,
		txRepo:      tRepo,
		db:          db,
		notifier:    notifier,
		hub:         hub,
		now:         time.Now,
	}
}

// applyLowStockTransition evaluates the low-stock rule against the product's
// current stock and mutates LowStockSinceDate accordingly:
//
//	stock <= threshold, date unset  -> set date (episode begins)
//	stock <= threshold, date set    -> unchanged
//	stock >  threshold              -> clear date (episode ends)
//
// Returns true only when this evaluation began a new episode.
func applyLowStockTransition(p *model.Product, now time.Time) (entered bool) {
	if p.Stock <= p.LowStockThreshold {
		if p.LowStockSinceDate == nil {
			t := now
			p.LowStockSinceDate = &t
			return true
		}
		return false
	}
	p.LowStockSinceDate = nil
	return false
}

func (s *inventoryService) CreateProduct(caller Caller, req *CreateProductRequest, imagePaths []string) (*model.Product, error) {
	if caller.Role != model.RoleVillager {
		return nil, apperr.ErrForbidden
	}
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.FirstMessage(errs))
	}

	threshold := model.DefaultLowStockThreshold
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}

	product := &model.Product{
		OwnerID:           caller.ID,
		Name:              req.Name,
		Category:          req.Category,
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: threshold,
	}
	// A listing created already at/below threshold starts its episode now.
	applyLowStockTransition(product, s.now())

	if err := s.productRepo.Create(product); err != nil {
		return nil, apperr.Storage("create product", err)
	}

	for _, path := range imagePaths {
		img := &model.ProductImage{ProductID: product.ID, ImagePath: path}
		if err := s.productRepo.AddImage(img); err != nil {
			return nil, apperr.Storage("attach image", err)
		}
		product.Images = append(product.Images, *img)
	}

	return product, nil
}

func (s *inventoryService) UpdateProduct(productID uuid.UUID, caller Caller, req *UpdateProductRequest) (*model.Product, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.FirstMessage(errs))
	}

	var (
		updated model.Product
		entered bool
	)
	// The locked read keeps a concurrent purchase from interleaving, and only
	// the touched columns are written back.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.GetForUpdate(tx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		if product.OwnerID != caller.ID {
			return apperr.ErrNotOwner
		}

		fields := map[string]interface{}{}
		if req.Name != nil {
			product.Name = *req.Name
			fields["name"] = product.Name
		}
		if req.Category != nil {
			product.Category = *req.Category
			fields["category"] = product.Category
		}
		if req.Price != nil {
			product.Price = *req.Price
			fields["price"] = product.Price
		}
		stockTouched := req.Stock != nil || req.LowStockThreshold != nil
		if req.Stock != nil {
			product.Stock = *req.Stock
			fields["stock"] = product.Stock
		}
		if req.LowStockThreshold != nil {
			product.LowStockThreshold = *req.LowStockThreshold
			fields["low_stock_threshold"] = product.LowStockThreshold
		}

		// Restock re-evaluates the same transition rule as purchase.
		if stockTouched {
			entered = applyLowStockTransition(product, s.now())
			fields["low_stock_since_date"] = product.LowStockSinceDate
		}

		if len(fields) > 0 {
			if err := s.productRepo.UpdateFields(tx, product.ID, fields); err != nil {
				return err
			}
		}
		updated = *product
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("update product", err)
	}

	if entered {
		go s.notifier.NotifyLowStock(updated)
	}
	s.hub.BroadcastJSON(map[string]interface{}{
		"type":       "stock_update",
		"action":     "product_updated",
		"product_id": updated.ID,
		"stock":      updated.Stock,
	})
	return &updated, nil
}

func (s *inventoryService) DeleteProduct(productID uuid.UUID, caller Caller) ([]string, error) {
	product, err := s.productRepo.FindByID(productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("load product", err)
	}
	if product.OwnerID != caller.ID {
		return nil, apperr.ErrNotOwner
	}

	images, err := s.productRepo.ImagesByProduct(product.ID)
	if err != nil {
		return nil, apperr.Storage("load images", err)
	}
	paths := make([]string, 0, len(images))
	for _, img := range images {
		paths = append(paths, img.ImagePath)
	}

	if err := s.productRepo.Delete(product); err != nil {
		return nil, apperr.Storage("delete product", err)
	}
	return paths, nil
}

func (s *inventoryService) Purchase(productID uuid.UUID, caller Caller, quantity float64) (*PurchaseResult, error) {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return nil, apperr.Validation("Valid positive quantity is required.")
	}
	if caller.Role != model.RoleUser {
		return nil, apperr.ErrOnlyUsersPurchase
	}

	var (
		updated model.Product
		entered bool
	)
	// One atomic unit: guarded decrement, low-stock evaluation, sale append.
	// Everything commits together or rolls back together.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rows, err := s.productRepo.DecrementStock(tx, productID, quantity)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Either the product is gone or stock is short; the follow-up
			// read in the same transaction tells which, and the reported
			// available figure is exact at rejection time.
			product, err := s.productRepo.Get(tx, productID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			if err != nil {
				return err
			}
			return &apperr.InsufficientStockError{Available: product.Stock}
		}

		product, err := s.productRepo.Get(tx, productID)
		if err != nil {
			return err
		}

		entered = applyLowStockTransition(product, s.now())
		if err := s.productRepo.SetLowStockSince(tx, product.ID, product.LowStockSinceDate); err != nil {
			return err
		}

		sale := &model.Transaction{
			ProductID:    product.ID,
			BuyerID:      caller.ID,
			QuantitySold: quantity,
			DateOfSale:   s.now(),
		}
		if err := s.txRepo.Create(tx, sale); err != nil {
			return err
		}

		updated = *product
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("purchase", err)
	}

	// Notification fires only on the purchase that crossed the threshold,
	// never again while the episode lasts. Best-effort, off the hot path.
	if entered {
		go s.notifier.NotifyLowStock(updated)
	}
	s.hub.BroadcastJSON(map[string]interface{}{
		"type":       "stock_update",
		"action":     "product_purchased",
		"product_id": updated.ID,
		"stock":      updated.Stock,
		"quantity":   quantity,
	})

	return &PurchaseResult{
		Product:       updated.ToView(),
		LowStockAlert: updated.IsLowStock(),
	}, nil
}

func (s *inventoryService) ListProducts() ([]model.Product, error) {
	products, err := s.productRepo.FindAll()
	if err != nil {
		return nil, apperr.Storage("list products", err)
	}
	return products, nil
}

func (s *inventoryService) ListLowStock(caller Caller) ([]model.Product, error) {
	if caller.Role != model.RoleVillager {
		return nil, apperr.ErrOnlyVillagers
	}
	products, err := s.productRepo.FindLowStockByOwner(caller.ID)
	if err != nil {
		return nil, apperr.Storage("list low stock", err)
	}
	return products, nil
}

func (s *inventoryService) History(productID uuid.UUID, caller Caller, sinceDays *int) ([]model.TransactionResponse, error) {
	product, err := s.productRepo.FindByID(productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("load product", err)
	}
	if product.OwnerID != caller.ID {
		return nil, apperr.ErrNotOwner
	}

	var since *time.Time
	if sinceDays != nil {
		if *sinceDays <= 0 {
			return nil, apperr.Validation("days must be a positive integer")
		}
		t := s.now().Add(-time.Duration(*sinceDays) * 24 * time.Hour)
		since = &t
	}

	transactions, err := s.txRepo.FindByProduct(productID, since)
	if err != nil {
		return nil, apperr.Storage("load transactions", err)
	}

	out := make([]model.TransactionResponse, len(transactions))
	for i := range transactions {
		out[i] = transactions[i].ToResponse()
	}
	return out, nil
}
