package service

import (
	"fmt"
	"log"

	"go-farm-market/internal/model"
	"go-farm-market/internal/repository"
	"go-farm-market/internal/ws"
	"go-farm-market/pkg/mail"
)

// LowStockNotifier is told when a product crosses into low stock. Delivery is
// best-effort: failures are logged and never reach the purchase caller.
type LowStockNotifier interface {
	NotifyLowStock(product model.Product)
}

type emailNotifier struct {
	userRepo repository.UserRepository
	mailer   *mail.Mailer
	hub      *ws.Hub
}

func NewLowStockNotifier(userRepo repository.UserRepository, mailer *mail.Mailer, hub *ws.Hub) LowStockNotifier {
	return &emailNotifier{userRepo: userRepo, mailer: mailer, hub: hub}
}

func (n *emailNotifier) NotifyLowStock(product model.Product) {
	owner, err := n.userRepo.FindByID(product.OwnerID)
	if err != nil {
		log.Printf("low-stock notify: owner lookup for product %s: %v", product.ID, err)
		return
	}

	n.hub.BroadcastJSON(map[string]interface{}{
		"type":                 "low_stock_alert",
		"product_id":           product.ID,
		"product_name":         product.Name,
		"owner_id":             owner.ID,
		"stock":                product.Stock,
		"low_stock_threshold":  product.LowStockThreshold,
		"low_stock_since_date": product.LowStockSinceDate,
	})

	subject := fmt.Sprintf("Low Stock Alert: %s from %s", product.Name, owner.FarmName)
	body := fmt.Sprintf(`
		<p>Dear %s farmer,</p>
		<p>This is an automated alert from the farm marketplace.</p>
		<p>Your product <strong>%s</strong> has reached a low stock level.</p>
		<p>Current Stock: <strong>%gkg</strong></p>
		<p>Low Stock Threshold: <strong>%gkg</strong></p>
		<p>Please consider restocking your product to continue selling on our platform.</p>
	`, owner.FarmName, product.Name, product.Stock, product.LowStockThreshold)

	if err := n.mailer.Send([]string{owner.NotifyEmail()}, subject, body); err != nil {
		log.Printf("low-stock notify: send to %s: %v", owner.NotifyEmail(), err)
	}
}

// nopNotifier discards events; used where no mail config exists.
type nopNotifier struct{}

func (nopNotifier) NotifyLowStock(model.Product) {}

// NewNopNotifier returns a notifier that does nothing.
func NewNopNotifier() LowStockNotifier { return nopNotifier{} }
