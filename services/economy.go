package services

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Service) ListEnergyPackages(ctx context.Context, activeOnly bool) ([]*models.EnergyPackage, error) {
	pkgs, err := s.store.ListEnergyPackages(ctx, activeOnly)
	return pkgs, wrap(err)
}

// CreateEnergyPackage adds an active package selling quantity energy for amount.
func (s *Service) CreateEnergyPackage(ctx context.Context, quantity, amount int) (*models.EnergyPackage, error) {
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}
	if amount < 1 {
		return nil, invalid("amount must be at least 1")
	}
	pkg := &models.EnergyPackage{Quantity: quantity, Amount: amount, IsActive: true}
	if err := s.store.InsertEnergyPackage(ctx, pkg); err != nil {
		return nil, wrap(err)
	}
	return pkg, nil
}

func (s *Service) SetEnergyPackageActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.EnergyPackage, error) {
	pkg, err := s.store.SetEnergyPackageActive(ctx, id, active)
	if isStoreNotFound(err) {
		return nil, notFound("energy package %s not found", id.Hex())
	}
	return pkg, wrap(err)
}

func (s *Service) DeleteEnergyPackage(ctx context.Context, id primitive.ObjectID) error {
	err := s.store.SoftDelete(ctx, store.EntityEnergyPackage, id)
	if isStoreNotFound(err) {
		return notFound("energy package %s not found", id.Hex())
	}
	return wrap(err)
}

func (s *Service) PurchaseEnergyPackage(ctx context.Context, userID, packageID primitive.ObjectID) (*models.User, error) {
	var user *models.User
	err := s.transaction(ctx, "purchase_energy", func(ctx context.Context, tx store.Repository) error {
		pkg, err := tx.FindEnergyPackage(ctx, packageID)
		if err != nil {
			if isStoreNotFound(err) {
				return notFound("energy package %s not found", packageID.Hex())
			}
			return err
		}
		if !pkg.IsActive {
			return invalid("energy package %s is not on sale", packageID.Hex())
		}

		if err = tx.InsertTransaction(ctx, &models.Transaction{
			UserID:   userID,
			Resource: models.EnergyResource{Package: pkg.ID},
		}); err != nil {
			return err
		}
		user, err = tx.AdjustUserBalance(ctx, userID, 0, pkg.Quantity)
		if isStoreNotFound(err) {
			return notFound("user %s not found", userID.Hex())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// PurchaseCoins records a coin purchase of quantity coins at rate and credits
// them to the user.
func (s *Service) PurchaseCoins(ctx context.Context, userID primitive.ObjectID, quantity int, rate float64) (*models.User, error) {
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}
	if rate <= 0 {
		return nil, invalid("rate must be positive")
	}

	var user *models.User
	err := s.transaction(ctx, "purchase_coins", func(ctx context.Context, tx store.Repository) error {
		if err := tx.InsertTransaction(ctx, &models.Transaction{
			UserID: userID,
			Resource: models.CoinResource{
				Amount:   float64(quantity) * rate,
				Rate:     rate,
				Quantity: quantity,
			},
		}); err != nil {
			return err
		}
		var err error
		user, err = tx.AdjustUserBalance(ctx, userID, quantity, 0)
		if isStoreNotFound(err) {
			return notFound("user %s not found", userID.Hex())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
