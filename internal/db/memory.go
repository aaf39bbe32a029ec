package db

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryTxKey struct{}

type memoryData struct {
	vehicles    map[primitive.ObjectID]models.Vehicle
	drivers     map[primitive.ObjectID]models.Driver
	trips       map[primitive.ObjectID]models.Trip
	maintenance map[primitive.ObjectID]models.Maintenance
	fuelLogs    map[primitive.ObjectID]models.FuelLog
	expenses    map[primitive.ObjectID]models.Expense
	users       map[primitive.ObjectID]models.User
}

func (d memoryData) clone() memoryData {
	return memoryData{
		vehicles:    maps.Clone(d.vehicles),
		drivers:     maps.Clone(d.drivers),
		trips:       maps.Clone(d.trips),
		maintenance: maps.Clone(d.maintenance),
		fuelLogs:    maps.Clone(d.fuelLogs),
		expenses:    maps.Clone(d.expenses),
		users:       maps.Clone(d.users),
	}
}

// MemoryStore implements Store in process memory. Rows are stored by value
// and replaced whole, so a returned copy never aliases stored state through
// anything the store writes.
type MemoryStore struct {
	mu   sync.RWMutex
	data memoryData
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: memoryData{
		vehicles:    map[primitive.ObjectID]models.Vehicle{},
		drivers:     map[primitive.ObjectID]models.Driver{},
		trips:       map[primitive.ObjectID]models.Trip{},
		maintenance: map[primitive.ObjectID]models.Maintenance{},
		fuelLogs:    map[primitive.ObjectID]models.FuelLog{},
		expenses:    map[primitive.ObjectID]models.Expense{},
		users:       map[primitive.ObjectID]models.User{},
	}}
}

// WithTransaction holds the write lock for the whole of fn and restores the
// previous contents if fn fails.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, memoryTxKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(memoryTxKey{}).(*MemoryStore)
	return owner == s
}

// write locks for writing unless ctx already belongs to a transaction.
func (s *MemoryStore) write(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) read(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func lookup[T any](rows map[primitive.ObjectID]T, id string) (T, primitive.ObjectID, error) {
	var zero T
	oid, err := objectID(id)
	if err != nil {
		return zero, oid, err
	}
	row, ok := rows[oid]
	if !ok {
		return zero, oid, ErrNotFound
	}
	return row, oid, nil
}

func collect[T any](rows map[primitive.ObjectID]T, keep func(*T) bool, less func(a, b *T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if keep(&row) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

func statusIn[S ~string](status S, allowed []S) bool {
	return len(allowed) == 0 || slices.Contains(allowed, status)
}

// newestFirst orders by creation time, then by id, descending.
func newestFirst(aCreated, bCreated time.Time, aID, bID primitive.ObjectID) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return aID.Hex() > bID.Hex()
}

// InsertVehicle inserts a vehicle; the license plate must be unique.
func (s *MemoryStore) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	defer s.write(ctx)()
	if s.plateTaken(vehicle.LicensePlate, primitive.NilObjectID) {
		return ErrDuplicate
	}
	stamp(&vehicle.ID, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	s.data.vehicles[vehicle.ID] = *vehicle
	return nil
}

func (s *MemoryStore) plateTaken(plate string, except primitive.ObjectID) bool {
	for id, v := range s.data.vehicles {
		if id != except && v.LicensePlate == plate {
			return true
		}
	}
	return false
}

// FindVehicles returns matching vehicles, newest first.
func (s *MemoryStore) FindVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	defer s.read(ctx)()
	return collect(s.data.vehicles, filter.Match, func(a, b *models.Vehicle) bool {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}), nil
}

// FindVehicleByID finds a vehicle by its ID.
func (s *MemoryStore) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	defer s.read(ctx)()
	v, _, err := lookup(s.data.vehicles, id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CountVehicles counts every vehicle.
func (s *MemoryStore) CountVehicles(ctx context.Context) (int64, error) {
	defer s.read(ctx)()
	return int64(len(s.data.vehicles)), nil
}

// UpdateVehicle keeps the stored status and creation time.
func (s *MemoryStore) UpdateVehicle(ctx context.Context, vehicle models.Vehicle) error {
	defer s.write(ctx)()
	current, oid, err := lookup(s.data.vehicles, vehicle.ID.Hex())
	if err != nil {
		return err
	}
	if s.plateTaken(vehicle.LicensePlate, oid) {
		return ErrDuplicate
	}
	vehicle.Status = current.Status
	vehicle.CreatedAt = current.CreatedAt
	vehicle.UpdatedAt = nowUTC()
	s.data.vehicles[oid] = vehicle
	return nil
}

// SetVehicleStatus changes the status, optionally as a compare-and-set.
func (s *MemoryStore) SetVehicleStatus(ctx context.Context, id string, to models.VehicleStatus, from ...models.VehicleStatus) error {
	defer s.write(ctx)()
	v, oid, err := lookup(s.data.vehicles, id)
	if err != nil {
		return err
	}
	if !statusIn(v.Status, from) {
		return ErrStatusConflict
	}
	v.Status = to
	v.UpdatedAt = nowUTC()
	s.data.vehicles[oid] = v
	return nil
}

// RaiseOdometer never lowers the reading.
func (s *MemoryStore) RaiseOdometer(ctx context.Context, id string, km float64) error {
	defer s.write(ctx)()
	v, oid, err := lookup(s.data.vehicles, id)
	if err != nil {
		return err
	}
	if km > v.Odometer {
		v.Odometer = km
	}
	v.UpdatedAt = nowUTC()
	s.data.vehicles[oid] = v
	return nil
}

// DeleteVehicle deletes a vehicle by its ID.
func (s *MemoryStore) DeleteVehicle(ctx context.Context, id string) error {
	defer s.write(ctx)()
	_, oid, err := lookup(s.data.vehicles, id)
	if err != nil {
		return err
	}
	delete(s.data.vehicles, oid)
	return nil
}

// InsertDriver inserts a driver.
func (s *MemoryStore) InsertDriver(ctx context.Context, driver *models.Driver) error {
	defer s.write(ctx)()
	stamp(&driver.ID, &driver.CreatedAt, &driver.UpdatedAt)
	s.data.drivers[driver.ID] = *driver
	return nil
}

// FindDrivers returns matching drivers ordered by name.
func (s *MemoryStore) FindDrivers(ctx context.Context, filter models.DriverFilter) ([]models.Driver, error) {
	defer s.read(ctx)()
	return collect(s.data.drivers, filter.Match, func(a, b *models.Driver) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.Hex() < b.ID.Hex()
	}), nil
}

// FindDriverByID finds a driver by its ID.
func (s *MemoryStore) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	defer s.read(ctx)()
	d, _, err := lookup(s.data.drivers, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDriver keeps the stored status and trip counters.
func (s *MemoryStore) UpdateDriver(ctx context.Context, driver models.Driver) error {
	defer s.write(ctx)()
	current, oid, err := lookup(s.data.drivers, driver.ID.Hex())
	if err != nil {
		return err
	}
	driver.Status = current.Status
	driver.TripsCompleted = current.TripsCompleted
	driver.TripsCancelled = current.TripsCancelled
	driver.CreatedAt = current.CreatedAt
	driver.UpdatedAt = nowUTC()
	s.data.drivers[oid] = driver
	return nil
}

// SetDriverStatus changes the status, optionally as a compare-and-set.
func (s *MemoryStore) SetDriverStatus(ctx context.Context, id string, to models.DriverStatus, from ...models.DriverStatus) error {
	defer s.write(ctx)()
	d, oid, err := lookup(s.data.drivers, id)
	if err != nil {
		return err
	}
	if !statusIn(d.Status, from) {
		return ErrStatusConflict
	}
	d.Status = to
	d.UpdatedAt = nowUTC()
	s.data.drivers[oid] = d
	return nil
}

// IncDriverTrips bumps the completed and cancelled counters.
func (s *MemoryStore) IncDriverTrips(ctx context.Context, id string, completed, cancelled int) error {
	defer s.write(ctx)()
	d, oid, err := lookup(s.data.drivers, id)
	if err != nil {
		return err
	}
	d.TripsCompleted += completed
	d.TripsCancelled += cancelled
	d.UpdatedAt = nowUTC()
	s.data.drivers[oid] = d
	return nil
}

// DeleteDriver deletes a driver by its ID.
func (s *MemoryStore) DeleteDriver(ctx context.Context, id string) error {
	defer s.write(ctx)()
	_, oid, err := lookup(s.data.drivers, id)
	if err != nil {
		return err
	}
	delete(s.data.drivers, oid)
	return nil
}

// InsertTrip inserts a trip.
func (s *MemoryStore) InsertTrip(ctx context.Context, trip *models.Trip) error {
	defer s.write(ctx)()
	stamp(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
	s.data.trips[trip.ID] = *trip
	return nil
}

// FindTrips returns matching trips, newest first.
func (s *MemoryStore) FindTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error) {
	defer s.read(ctx)()
	return collect(s.data.trips, filter.Match, func(a, b *models.Trip) bool {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}), nil
}

// FindTripByID finds a trip by its ID.
func (s *MemoryStore) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	defer s.read(ctx)()
	t, _, err := lookup(s.data.trips, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ReplaceTrip stores the trip if its status is still expect.
func (s *MemoryStore) ReplaceTrip(ctx context.Context, trip models.Trip, expect models.TripStatus) error {
	defer s.write(ctx)()
	current, oid, err := lookup(s.data.trips, trip.ID.Hex())
	if err != nil {
		return err
	}
	if current.Status != expect {
		return ErrStatusConflict
	}
	trip.UpdatedAt = nowUTC()
	s.data.trips[oid] = trip
	return nil
}

// DeleteTrip deletes a trip whose status is one of allowed.
func (s *MemoryStore) DeleteTrip(ctx context.Context, id string, allowed ...models.TripStatus) error {
	defer s.write(ctx)()
	t, oid, err := lookup(s.data.trips, id)
	if err != nil {
		return err
	}
	if !statusIn(t.Status, allowed) {
		return ErrStatusConflict
	}
	delete(s.data.trips, oid)
	return nil
}
