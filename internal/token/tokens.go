// Package token holds per-user and system-shared credentials for registered
// endpoints, encrypted at rest. Callers outside this package only ever see
// the models.TokenDetail presence/metadata projection.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetgate/internal/event"
	"github.com/HerbHall/fleetgate/pkg/extension"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// ErrAbsent is returned when no usable credential exists for a lookup.
var ErrAbsent = errors.New("no credential present")

// Service is the token store service. The encryption key is derived once at
// startup; per-request operations go straight to the store, which serializes
// writes internally, so resolves for different users never block each other.
type Service struct {
	store  *Store
	key    []byte
	bus    extension.Publisher
	logger *zap.Logger
}

// NewService creates the token service and derives the at-rest encryption key
// from the configured passphrase. The key-derivation salt is created on first
// run and persisted alongside the records.
func NewService(ctx context.Context, store *Store, passphrase string, bus extension.Publisher, logger *zap.Logger) (*Service, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("token encryption passphrase is not configured")
	}

	salt, err := store.GetSalt(ctx)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt, err = GenerateSalt()
		if err != nil {
			return nil, err
		}
		if err := store.PutSalt(ctx, salt); err != nil {
			return nil, err
		}
		// Another instance may have raced us; re-read the winning salt.
		salt, err = store.GetSalt(ctx)
		if err != nil {
			return nil, err
		}
	}

	return &Service{
		store:  store,
		key:    DeriveKey(passphrase, salt),
		bus:    bus,
		logger: logger,
	}, nil
}

// GetForUser returns the user-scoped credential projection, or ErrAbsent.
func (s *Service) GetForUser(ctx context.Context, endpointGUID, userGUID string) (*models.TokenDetail, error) {
	if userGUID == "" {
		return nil, fmt.Errorf("user GUID is required")
	}
	rec, err := s.store.Get(ctx, endpointGUID, userGUID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrAbsent
	}
	return projection(rec), nil
}

// GetShared returns the system-shared credential projection, or ErrAbsent.
func (s *Service) GetShared(ctx context.Context, endpointGUID string) (*models.TokenDetail, error) {
	rec, err := s.store.Get(ctx, endpointGUID, "")
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrAbsent
	}
	return projection(rec), nil
}

// Resolve returns the credential projection for (endpoint, user), trying the
// user-scoped record first and falling back to the system-shared one. The
// boolean reports whether the shared fallback was used. The per-user-first
// precedence is load-bearing: a user's own credential always wins over a
// shared credential for the same endpoint.
func (s *Service) Resolve(ctx context.Context, endpointGUID, userGUID string) (*models.TokenDetail, bool, error) {
	if userGUID != "" {
		rec, err := s.store.Get(ctx, endpointGUID, userGUID)
		if err != nil {
			return nil, false, err
		}
		if rec != nil {
			return projection(rec), false, nil
		}
	}

	rec, err := s.store.Get(ctx, endpointGUID, "")
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, ErrAbsent
	}
	return projection(rec), true, nil
}

// Put stores (or refreshes in place) a credential. The raw token material is
// encrypted before it touches the store. An empty userGUID stores the
// system-shared record.
func (s *Service) Put(ctx context.Context, endpointGUID, userGUID string, rawToken []byte, metadata map[string]string) error {
	encrypted, err := Encrypt(s.key, rawToken)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	ZeroBytes(rawToken)

	now := time.Now().UTC()
	err = s.store.Upsert(ctx, &Record{
		EndpointGUID:  endpointGUID,
		UserGUID:      userGUID,
		SystemShared:  userGUID == "",
		EncryptedData: encrypted,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return err
	}

	s.logger.Info("token stored",
		zap.String("endpoint", endpointGUID),
		zap.Bool("system_shared", userGUID == ""),
	)
	s.publish(ctx, event.TopicTokenUpdated, endpointGUID)
	return nil
}

// Revoke deletes the credential for (endpoint, user). An empty userGUID
// revokes the system-shared record. Returns ErrAbsent if nothing was stored.
func (s *Service) Revoke(ctx context.Context, endpointGUID, userGUID string) error {
	n, err := s.store.Delete(ctx, endpointGUID, userGUID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAbsent
	}

	s.logger.Info("token revoked",
		zap.String("endpoint", endpointGUID),
		zap.Bool("system_shared", userGUID == ""),
	)
	s.publish(ctx, event.TopicTokenRevoked, endpointGUID)
	return nil
}

// RevokeForEndpoint drops every credential held for an endpoint.
func (s *Service) RevokeForEndpoint(ctx context.Context, endpointGUID string) error {
	return s.store.DeleteForEndpoint(ctx, endpointGUID)
}

// Unseal decrypts the stored token material for an endpoint/user pair.
// Reserved for the request proxy path; the aggregator never calls this.
func (s *Service) Unseal(ctx context.Context, endpointGUID, userGUID string) ([]byte, error) {
	rec, err := s.store.Get(ctx, endpointGUID, userGUID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrAbsent
	}
	return Decrypt(s.key, rec.EncryptedData)
}

func projection(rec *Record) *models.TokenDetail {
	return &models.TokenDetail{
		SystemShared: rec.SystemShared,
		Metadata:     rec.Metadata,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func (s *Service) publish(ctx context.Context, topic, endpointGUID string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, extension.Event{
		Topic:     topic,
		Source:    "token",
		Timestamp: time.Now().UTC(),
		Payload:   endpointGUID,
	}); err != nil {
		s.logger.Warn("failed to publish token event", zap.String("topic", topic), zap.Error(err))
	}
}
