package paymentcards

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/database"
	"github.com/richxcame/schoolrun/pkg/logger"
	"go.uber.org/zap"
)

var (
	// ErrCardNotFound is returned for unknown cards or cards of another user
	ErrCardNotFound = common.NewNotFoundError("payment card not found", nil)
	// ErrLastCard is returned when deleting the only remaining card
	ErrLastCard = common.NewConflictError("you cannot delete your only payment card")
	// ErrCardExpired is returned when adding a card past its expiry month
	ErrCardExpired = common.NewValidationError("card has expired")
)

// Service manages saved payment cards. While any card exists exactly one
// of them is the default.
type Service struct {
	repo RepositoryInterface
	tx   database.Transactor
	now  func() time.Time
}

// NewService creates a new payment cards service
func NewService(repo RepositoryInterface, tx database.Transactor) *Service {
	return &Service{repo: repo, tx: tx, now: time.Now}
}

// WithNow overrides the clock used for expiry checks
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddCard saves a card. The user's first card becomes the default.
func (s *Service) AddCard(ctx context.Context, userID uuid.UUID, req *AddCardRequest) (*Card, error) {
	now := s.now()
	if expired(req.ExpiryMonth, req.ExpiryYear, now) {
		return nil, ErrCardExpired
	}

	card := &Card{
		ID:             uuid.New(),
		UserID:         userID,
		LastFour:       lastFour(req.Number),
		Brand:          DetectBrand(req.Number),
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		CardholderName: strings.TrimSpace(req.CardholderName),
		BankName:       strings.TrimSpace(req.BankName),
		CreatedAt:      now,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockUserCards(ctx, userID); err != nil {
			return err
		}
		n, err := s.repo.CountCards(ctx, userID)
		if err != nil {
			return err
		}
		card.IsDefault = n == 0
		return s.repo.CreateCard(ctx, card)
	})
	if err != nil {
		return nil, common.NewInternalError("failed to add card", err)
	}

	logger.Get().Info("payment card added",
		zap.String("user_id", userID.String()),
		zap.String("brand", string(card.Brand)),
		zap.Bool("is_default", card.IsDefault),
	)
	return card, nil
}

// ListCards returns the user's cards, default first
func (s *Service) ListCards(ctx context.Context, userID uuid.UUID) ([]Card, error) {
	cards, err := s.repo.ListCards(ctx, userID)
	if err != nil {
		return nil, common.NewInternalError("failed to list cards", err)
	}
	return cards, nil
}

// HasCard reports whether the user has at least one saved card
func (s *Service) HasCard(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.repo.CountCards(ctx, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetDefaultCard returns the user's default card
func (s *Service) GetDefaultCard(ctx context.Context, userID uuid.UUID) (*Card, error) {
	card, err := s.repo.GetDefaultCard(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, common.NewInternalError("failed to get default card", err)
	}
	return card, nil
}

// SetDefault makes cardID the user's only default card
func (s *Service) SetDefault(ctx context.Context, userID, cardID uuid.UUID) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockUserCards(ctx, userID); err != nil {
			return err
		}
		if _, err := s.repo.GetCard(ctx, userID, cardID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCardNotFound
			}
			return err
		}
		if err := s.repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		ok, err := s.repo.MarkDefault(ctx, userID, cardID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCardNotFound
		}
		return nil
	})
	return wrap(err, "failed to set default card")
}

// DeleteCard removes a card. The sole remaining card cannot be deleted;
// deleting the default promotes the newest remaining card.
func (s *Service) DeleteCard(ctx context.Context, userID, cardID uuid.UUID) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockUserCards(ctx, userID); err != nil {
			return err
		}
		card, err := s.repo.GetCard(ctx, userID, cardID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCardNotFound
		}
		if err != nil {
			return err
		}

		n, err := s.repo.CountCards(ctx, userID)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastCard
		}

		if ok, err := s.repo.DeleteCard(ctx, userID, cardID); err != nil {
			return err
		} else if !ok {
			return ErrCardNotFound
		}

		if !card.IsDefault {
			return nil
		}
		next, err := s.repo.LatestCard(ctx, userID)
		if err != nil {
			return err
		}
		_, err = s.repo.MarkDefault(ctx, userID, next.ID)
		return err
	})
	if err == nil {
		logger.Get().Info("payment card deleted",
			zap.String("user_id", userID.String()),
			zap.String("card_id", cardID.String()),
		)
	}
	return wrap(err, "failed to delete card")
}

// expired reports whether a card is past the end of its expiry month
func expired(month, year int, now time.Time) bool {
	endOfMonth := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.Before(endOfMonth)
}

func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := common.AsAppError(err); ok {
		return err
	}
	return common.NewInternalError(msg, err)
}
