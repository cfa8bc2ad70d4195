package solicitation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/kiosk-orders/internal/application"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/customer"
	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/product"
	domain "github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/pkg/keylock"

	"go.opentelemetry.io/otel/attribute"
)

const (
	solicitationService = "order-solicitation-service"

	useCaseInitiate           = "solicitation.initiate"
	useCaseAssociateCustomer  = "solicitation.associate_customer"
	useCaseAssociateAnonymous = "solicitation.associate_anonymous"
	useCaseAddItem            = "solicitation.add_item"
	useCaseRemoveItem         = "solicitation.remove_item"
	useCaseConfirm            = "solicitation.confirm"
)

var ErrRepository = errors.New("order solicitation: repository failure")

// Service owns the cart: identification, item changes and the final conversion
// into an order draft.
type Service struct {
	repo      domain.Repository
	catalog   product.Catalog
	customers customer.Directory
	locks     *keylock.Map[int64]
	ins       application.Instruments
}

func NewService(
	repo domain.Repository,
	catalog product.Catalog,
	customers customer.Directory,
	tel observability.Observability,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		customers: customers,
		locks:     keylock.New[int64](),
		ins:       application.NewInstruments(tel, solicitationService),
	}
}

// Initiate opens a new cart in InIdentification with a zero total.
func (s *Service) Initiate(ctx context.Context) (_ *domain.Solicitation, err error) {
	ctx, run := s.ins.Start(ctx, useCaseInitiate, "InitiateSolicitation")
	defer func() { run.End(err) }()

	sol := domain.New()
	if err := s.repo.Insert(ctx, sol); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}
	run.Note("solicitation_id", sol.ID)
	return sol.Clone(), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Solicitation, error) {
	sol, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return sol, nil
}

// AssociateCustomer identifies the cart with a registered customer.
func (s *Service) AssociateCustomer(ctx context.Context, id int64, c customer.Customer) (_ *domain.Solicitation, err error) {
	ctx, run := s.ins.Start(ctx, useCaseAssociateCustomer, "AssociateCustomer",
		attribute.Int64("solicitation.id", id),
	)
	defer func() { run.End(err) }()

	return s.mutate(ctx, run, id, func(sol *domain.Solicitation) error {
		if err := sol.AssociateCustomer(c.ID); err != nil {
			if errors.Is(err, domain.ErrCustomerIDRequired) {
				run.Fail("CUSTOMER_ID_REQUIRED")
				return application.ValidationErr(err)
			}
			run.Fail("IDENTIFICATION_REJECTED")
			return err
		}
		run.Note("customer_id", c.ID.String())
		return nil
	})
}

// IdentifyByCPF resolves the customer by national id, then associates it.
func (s *Service) IdentifyByCPF(ctx context.Context, id int64, cpf string) (*domain.Solicitation, error) {
	cpf = strings.TrimSpace(cpf)
	if cpf == "" {
		return nil, application.Validation("cpf is required")
	}
	c, err := s.customers.FindByCPF(ctx, cpf)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("order solicitation: customer lookup: %w", err)
	}
	return s.AssociateCustomer(ctx, id, *c)
}

// AssociateAnonymous identifies the cart with a freshly generated anonymous id.
func (s *Service) AssociateAnonymous(ctx context.Context, id int64) (_ *domain.Solicitation, err error) {
	ctx, run := s.ins.Start(ctx, useCaseAssociateAnonymous, "AssociateAnonymous",
		attribute.Int64("solicitation.id", id),
	)
	defer func() { run.End(err) }()

	return s.mutate(ctx, run, id, func(sol *domain.Solicitation) error {
		if err := sol.AssociateAnonymous(); err != nil {
			run.Fail("IDENTIFICATION_REJECTED")
			return err
		}
		run.Note("anonymous_id", sol.AnonymousID.String())
		return nil
	})
}

type AddItemInput struct {
	SolicitationID int64
	ProductID      int64
	Quantity       int
	Observation    string
}

// AddItem appends a new line priced from the catalog and recomputes the total.
func (s *Service) AddItem(ctx context.Context, cmd AddItemInput) (_ *domain.Solicitation, err error) {
	ctx, run := s.ins.Start(ctx, useCaseAddItem, "AddItem",
		attribute.Int64("solicitation.id", cmd.SolicitationID),
		attribute.Int64("product.id", cmd.ProductID),
		attribute.Int("item.quantity", cmd.Quantity),
	)
	defer func() { run.End(err) }()

	if cmd.Quantity <= 0 {
		run.Fail("QUANTITY_INVALID")
		return nil, application.ValidationErr(domain.ErrInvalidQuantity)
	}

	return s.mutate(ctx, run, cmd.SolicitationID, func(sol *domain.Solicitation) error {
		p, err := s.catalog.Get(ctx, cmd.ProductID)
		if err != nil {
			run.Fail("PRODUCT_LOOKUP_FAILED")
			if errors.Is(err, product.ErrNotFound) {
				return err
			}
			return fmt.Errorf("order solicitation: product lookup: %w", err)
		}
		if err := sol.AddItem(*p, cmd.Quantity, cmd.Observation); err != nil {
			run.Fail("ADD_ITEM_REJECTED")
			return err
		}
		run.Note("total_value", sol.TotalValue.String())
		return nil
	})
}

type RemoveItemInput struct {
	SolicitationID int64
	ProductID      int64
	Quantity       int
}

// RemoveItem decrements or drops the first line holding the product.
func (s *Service) RemoveItem(ctx context.Context, cmd RemoveItemInput) (_ *domain.Solicitation, err error) {
	ctx, run := s.ins.Start(ctx, useCaseRemoveItem, "RemoveItem",
		attribute.Int64("solicitation.id", cmd.SolicitationID),
		attribute.Int64("product.id", cmd.ProductID),
		attribute.Int("item.quantity", cmd.Quantity),
	)
	defer func() { run.End(err) }()

	if cmd.Quantity <= 0 {
		run.Fail("QUANTITY_INVALID")
		return nil, application.ValidationErr(domain.ErrInvalidQuantity)
	}

	return s.mutate(ctx, run, cmd.SolicitationID, func(sol *domain.Solicitation) error {
		if err := sol.RemoveItem(cmd.ProductID, cmd.Quantity); err != nil {
			run.Fail("REMOVE_ITEM_REJECTED")
			return err
		}
		run.Note("total_value", sol.TotalValue.String())
		return nil
	})
}

// ConfirmToOrder validates the cart, snapshots it into an Emitted order draft
// and closes the cart. The draft is not stored; the order engine registers it.
func (s *Service) ConfirmToOrder(ctx context.Context, id int64) (draft *domorder.Order, err error) {
	ctx, run := s.ins.Start(ctx, useCaseConfirm, "ConfirmToOrder",
		attribute.Int64("solicitation.id", id),
	)
	defer func() { run.End(err) }()

	_, err = s.mutate(ctx, run, id, func(sol *domain.Solicitation) error {
		if err := sol.ReadyForConfirmation(); err != nil {
			run.Fail("NOT_READY_FOR_CONFIRMATION")
			if errors.Is(err, domain.ErrEmpty) || errors.Is(err, domain.ErrNegativeTotal) {
				return application.ValidationErr(err)
			}
			return err
		}
		o, err := domorder.NewFromSolicitation(sol)
		if err != nil {
			run.Fail("ORDER_VALIDATION_FAILED")
			return application.ValidationErr(err)
		}
		if err := sol.Finish(); err != nil {
			run.Fail("FINISH_REJECTED")
			return err
		}
		draft = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// mutate serializes load-change-store for one cart.
func (s *Service) mutate(ctx context.Context, run *application.Run, id int64, change func(*domain.Solicitation) error) (*domain.Solicitation, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sol, err := s.repo.Get(ctx, id)
	if err != nil {
		run.Fail("SOLICITATION_LOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if err := change(sol); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}
	if err := s.repo.Update(ctx, sol); err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	run.Note("solicitation_status", string(sol.Status))
	return sol.Clone(), nil
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}
