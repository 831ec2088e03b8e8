package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dejobratic/storefront/internal/checkout/app/commands"
	"github.com/dejobratic/storefront/internal/checkout/app/inventory"
	"github.com/dejobratic/storefront/internal/checkout/app/queries"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/metrics"
	"github.com/dejobratic/storefront/internal/checkout/ports"
)

// Dependencies are the stores and collaborators the checkout service runs on.
type Dependencies struct {
	Products ports.ProductRepository
	Orders   ports.OrderRepository
	Ledger   *inventory.Ledger
	Events   ports.EventBus
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	// AutoCapture settles new orders immediately with a demo payment.
	AutoCapture bool
}

// Service bundles the storefront checkout use cases.
type Service struct {
	products     ports.ProductRepository
	placeOrder   commands.PlaceOrderHandler
	applyPayment commands.ApplyPaymentEventHandler
	transition   *commands.TransitionOrderCommandHandler
	getOrder     *queries.GetOrderQueryHandler
	listOrders   *queries.ListOrdersQueryHandler
	productQuery *queries.ProductQueryHandler
}

// NewService wires required dependencies.
func NewService(deps Dependencies) *Service {
	settlement := commands.NewObservableApplyPaymentEventHandler(
		commands.NewApplyPaymentEventCommandHandler(deps.Orders, deps.Events, deps.Logger),
		deps.Logger,
		deps.Metrics,
	)

	var opts []commands.PlaceOrderOption
	if deps.AutoCapture {
		opts = append(opts, commands.WithAutoCapture(settlement))
	}
	placement := commands.NewObservablePlaceOrderHandler(
		commands.NewPlaceOrderCommandHandler(deps.Products, deps.Orders, deps.Ledger, deps.Events, deps.Logger, opts...),
		deps.Logger,
		deps.Metrics,
		string(deps.Ledger.Strategy()),
	)

	return &Service{
		products:     deps.Products,
		placeOrder:   placement,
		applyPayment: settlement,
		transition:   commands.NewTransitionOrderCommandHandler(deps.Orders),
		getOrder:     queries.NewGetOrderQueryHandler(deps.Orders),
		listOrders:   queries.NewListOrdersQueryHandler(deps.Orders),
		productQuery: queries.NewProductQueryHandler(deps.Products),
	}
}

// PlaceOrder runs a checkout submission.
func (s *Service) PlaceOrder(ctx context.Context, cmd commands.PlaceOrderCommand) (*commands.PlaceOrderResult, error) {
	return s.placeOrder.Handle(ctx, cmd)
}

// ApplyPaymentEvent settles a provider event against an order.
func (s *Service) ApplyPaymentEvent(ctx context.Context, cmd commands.ApplyPaymentEventCommand) (*commands.SettlementResult, error) {
	return s.applyPayment.Handle(ctx, cmd)
}

// TransitionOrder applies an admin status action.
func (s *Service) TransitionOrder(ctx context.Context, orderID, action string) (*domain.Order, error) {
	return s.transition.Handle(ctx, commands.TransitionOrderCommand{OrderID: orderID, Action: action})
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// ListOrders returns a page of orders.
func (s *Service) ListOrders(ctx context.Context, query queries.ListOrdersQuery) ([]domain.Order, error) {
	return s.listOrders.Handle(ctx, query)
}

func (s *Service) ListProducts(ctx context.Context, query queries.ListProductsQuery) ([]domain.Product, error) {
	return s.productQuery.List(ctx, query)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.productQuery.Get(ctx, id)
}

// SaveProduct upserts a catalog entry.
func (s *Service) SaveProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := s.products.Save(ctx, product); err != nil {
		if errors.Is(err, domain.ErrValidationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return s.productQuery.Get(ctx, product.ID)
}

// DeleteProduct removes a catalog entry. Carts still holding it fail at checkout
// with ErrProductNotFound.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// CartEntryFor snapshots a product into a cart line. Unavailable products cannot be
// added; stock itself is only checked at checkout.
func (s *Service) CartEntryFor(ctx context.Context, productID string, quantity int) (domain.CartEntry, error) {
	product, err := s.productQuery.Get(ctx, productID)
	if err != nil {
		return domain.CartEntry{}, err
	}
	if !product.Available {
		return domain.CartEntry{}, &domain.OutOfStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Requested: quantity,
			Available: product.Stock,
		}
	}
	return domain.NewCartEntry(*product, quantity), nil
}

// CheckoutPreview prices cart against live products without reserving anything.
func (s *Service) CheckoutPreview(ctx context.Context, cart []domain.CartEntry) (domain.Draft, error) {
	products, err := s.products.GetByIDs(ctx, domain.ProductIDs(cart))
	if err != nil {
		return domain.Draft{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return domain.BuildDraft(cart, products)
}
