package service

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAddress(name string) *model.Address {
	return &model.Address{
		Name:      name,
		Recipient: "Jane Doe",
		Phone:     "555-0100",
		Address:   "1 Main St",
	}
}

func TestAddressService_FirstAddressIsDefault(t *testing.T) {
	f := setupServiceFixture(t)
	addresses := NewAddressService(f.addressRepo)

	home := newTestAddress("Home")
	require.NoError(t, addresses.CreateAddress(1, home))
	assert.True(t, home.IsDefault)

	work := newTestAddress("Work")
	require.NoError(t, addresses.CreateAddress(1, work))
	assert.False(t, work.IsDefault)

	list, err := addresses.GetUserAddresses(1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Home", list[0].Name)
}

func TestAddressService_SetDefaultAddress(t *testing.T) {
	f := setupServiceFixture(t)
	addresses := NewAddressService(f.addressRepo)

	home := newTestAddress("Home")
	work := newTestAddress("Work")
	require.NoError(t, addresses.CreateAddress(1, home))
	require.NoError(t, addresses.CreateAddress(1, work))

	require.NoError(t, addresses.SetDefaultAddress(1, work.ID))

	def, err := f.addressRepo.FindDefault(1)
	require.NoError(t, err)
	assert.Equal(t, work.ID, def.ID)

	assert.ErrorIs(t, addresses.SetDefaultAddress(2, work.ID), ErrUnauthorizedAccess)
	assert.ErrorIs(t, addresses.SetDefaultAddress(1, 999), ErrAddressNotFound)
}

func TestAddressService_UpdateAndDelete(t *testing.T) {
	f := setupServiceFixture(t)
	addresses := NewAddressService(f.addressRepo)

	home := newTestAddress("Home")
	require.NoError(t, addresses.CreateAddress(1, home))

	changed := newTestAddress("Home")
	changed.Address = "2 Side St"
	changed.IsDefault = true
	require.NoError(t, addresses.UpdateAddress(1, home.ID, changed))

	stored, err := f.addressRepo.FindByID(home.ID)
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", stored.Address)

	assert.ErrorIs(t, addresses.UpdateAddress(2, home.ID, changed), ErrUnauthorizedAccess)
	assert.ErrorIs(t, addresses.DeleteAddress(2, home.ID), ErrUnauthorizedAccess)

	require.NoError(t, addresses.DeleteAddress(1, home.ID))
	assert.ErrorIs(t, addresses.DeleteAddress(1, home.ID), ErrAddressNotFound)
}
