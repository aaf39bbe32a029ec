package db

import (
	"context"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func byDate[T any](date func(*T) (primitive.ObjectID, int64)) func(a, b *T) bool {
	return func(a, b *T) bool {
		aID, aDate := date(a)
		bID, bDate := date(b)
		if aDate != bDate {
			return aDate > bDate
		}
		return aID.Hex() > bID.Hex()
	}
}

var (
	maintenanceByDate = byDate(func(m *models.Maintenance) (primitive.ObjectID, int64) { return m.ID, m.Date.UnixNano() })
	fuelLogsByDate    = byDate(func(l *models.FuelLog) (primitive.ObjectID, int64) { return l.ID, l.Date.UnixNano() })
	expensesByDate    = byDate(func(e *models.Expense) (primitive.ObjectID, int64) { return e.ID, e.Date.UnixNano() })
)

// InsertMaintenance inserts a maintenance record.
func (s *MemoryStore) InsertMaintenance(ctx context.Context, record *models.Maintenance) error {
	defer s.write(ctx)()
	stamp(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	s.data.maintenance[record.ID] = *record
	return nil
}

// FindMaintenance returns matching records, latest date first.
func (s *MemoryStore) FindMaintenance(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, error) {
	defer s.read(ctx)()
	return collect(s.data.maintenance, filter.Match, maintenanceByDate), nil
}

// FindMaintenanceByID finds a maintenance record by its ID.
func (s *MemoryStore) FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error) {
	defer s.read(ctx)()
	m, _, err := lookup(s.data.maintenance, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMaintenance counts matching records.
func (s *MemoryStore) CountMaintenance(ctx context.Context, filter models.MaintenanceFilter) (int64, error) {
	defer s.read(ctx)()
	var n int64
	for _, m := range s.data.maintenance {
		if filter.Match(&m) {
			n++
		}
	}
	return n, nil
}

// ReplaceMaintenance stores the record if its status is still expect.
func (s *MemoryStore) ReplaceMaintenance(ctx context.Context, record models.Maintenance, expect models.MaintenanceStatus) error {
	defer s.write(ctx)()
	current, oid, err := lookup(s.data.maintenance, record.ID.Hex())
	if err != nil {
		return err
	}
	if current.Status != expect {
		return ErrStatusConflict
	}
	record.UpdatedAt = nowUTC()
	s.data.maintenance[oid] = record
	return nil
}

// DeleteMaintenance deletes a record whose status is expect.
func (s *MemoryStore) DeleteMaintenance(ctx context.Context, id string, expect models.MaintenanceStatus) error {
	defer s.write(ctx)()
	m, oid, err := lookup(s.data.maintenance, id)
	if err != nil {
		return err
	}
	if m.Status != expect {
		return ErrStatusConflict
	}
	delete(s.data.maintenance, oid)
	return nil
}

// InsertFuelLog inserts a fuel log.
func (s *MemoryStore) InsertFuelLog(ctx context.Context, log *models.FuelLog) error {
	defer s.write(ctx)()
	stamp(&log.ID, &log.CreatedAt, &log.UpdatedAt)
	s.data.fuelLogs[log.ID] = *log
	return nil
}

// FindFuelLogs returns matching fuel logs, latest date first.
func (s *MemoryStore) FindFuelLogs(ctx context.Context, filter models.FuelLogFilter) ([]models.FuelLog, error) {
	defer s.read(ctx)()
	return collect(s.data.fuelLogs, filter.Match, fuelLogsByDate), nil
}

// FindFuelLogByID finds a fuel log by its ID.
func (s *MemoryStore) FindFuelLogByID(ctx context.Context, id string) (*models.FuelLog, error) {
	defer s.read(ctx)()
	l, _, err := lookup(s.data.fuelLogs, id)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ReplaceFuelLog updates a fuel log by its ID.
func (s *MemoryStore) ReplaceFuelLog(ctx context.Context, log models.FuelLog) error {
	defer s.write(ctx)()
	_, oid, err := lookup(s.data.fuelLogs, log.ID.Hex())
	if err != nil {
		return err
	}
	log.UpdatedAt = nowUTC()
	s.data.fuelLogs[oid] = log
	return nil
}

// DeleteFuelLog deletes a fuel log by its ID.
func (s *MemoryStore) DeleteFuelLog(ctx context.Context, id string) error {
	defer s.write(ctx)()
	_, oid, err := lookup(s.data.fuelLogs, id)
	if err != nil {
		return err
	}
	delete(s.data.fuelLogs, oid)
	return nil
}

// InsertExpense inserts an expense.
func (s *MemoryStore) InsertExpense(ctx context.Context, expense *models.Expense) error {
	defer s.write(ctx)()
	stamp(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	s.data.expenses[expense.ID] = *expense
	return nil
}

// FindExpenses returns matching expenses, latest date first.
func (s *MemoryStore) FindExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	defer s.read(ctx)()
	return collect(s.data.expenses, filter.Match, expensesByDate), nil
}

// FindExpenseByID finds an expense by its ID.
func (s *MemoryStore) FindExpenseByID(ctx context.Context, id string) (*models.Expense, error) {
	defer s.read(ctx)()
	e, _, err := lookup(s.data.expenses, id)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ReplaceExpense updates an expense by its ID.
func (s *MemoryStore) ReplaceExpense(ctx context.Context, expense models.Expense) error {
	defer s.write(ctx)()
	_, oid, err := lookup(s.data.expenses, expense.ID.Hex())
	if err != nil {
		return err
	}
	expense.UpdatedAt = nowUTC()
	s.data.expenses[oid] = expense
	return nil
}

// DeleteExpense deletes an expense by its ID.
func (s *MemoryStore) DeleteExpense(ctx context.Context, id string) error {
	defer s.write(ctx)()
	_, oid, err := lookup(s.data.expenses, id)
	if err != nil {
		return err
	}
	delete(s.data.expenses, oid)
	return nil
}

// InsertUser inserts a user; usernames are unique.
func (s *MemoryStore) InsertUser(ctx context.Context, user *models.User) error {
	defer s.write(ctx)()
	for _, u := range s.data.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}
	stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	s.data.users[user.ID] = *user
	return nil
}

// FindUserByID finds a user by their ID.
func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	defer s.read(ctx)()
	u, _, err := lookup(s.data.users, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByUsername finds a user by their username.
func (s *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	defer s.read(ctx)()
	for _, u := range s.data.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateUser keeps the stored username and creation time.
func (s *MemoryStore) UpdateUser(ctx context.Context, user models.User) error {
	defer s.write(ctx)()
	current, oid, err := lookup(s.data.users, user.ID.Hex())
	if err != nil {
		return err
	}
	user.Username = current.Username
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = nowUTC()
	s.data.users[oid] = user
	return nil
}
