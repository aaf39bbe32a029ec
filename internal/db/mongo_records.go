package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

var byDateDesc = bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func maintenanceQuery(f models.MaintenanceFilter) bson.M {
	var conds []bson.M
	conds = eq(conds, "vehicle_id", f.VehicleID)
	conds = eq(conds, "status", string(f.Status))
	return and(conds)
}

// InsertMaintenance inserts a maintenance record into the collection.
func (s *MongoStore) InsertMaintenance(ctx context.Context, record *models.Maintenance) error {
	stamp(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	return insertOne(ctx, s.maintenance, record)
}

// FindMaintenance queries maintenance records from the collection.
func (s *MongoStore) FindMaintenance(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, error) {
	records := []models.Maintenance{}
	err := findAll(ctx, s.maintenance, maintenanceQuery(filter), byDateDesc, &records)
	return records, err
}

// FindMaintenanceByID finds a maintenance record by its ID.
func (s *MongoStore) FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error) {
	var record models.Maintenance
	if err := findByID(ctx, s.maintenance, id, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CountMaintenance counts matching records.
func (s *MongoStore) CountMaintenance(ctx context.Context, filter models.MaintenanceFilter) (int64, error) {
	n, err := s.maintenance.CountDocuments(ctx, maintenanceQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count maintenance: %w", err)
	}
	return n, nil
}

// ReplaceMaintenance stores the record if its status is still expect.
func (s *MongoStore) ReplaceMaintenance(ctx context.Context, record models.Maintenance, expect models.MaintenanceStatus) error {
	record.UpdatedAt = nowUTC()
	return replaceByID(ctx, s.maintenance, record.ID, record, string(expect))
}

// DeleteMaintenance deletes a maintenance record whose status is expect.
func (s *MongoStore) DeleteMaintenance(ctx context.Context, id string, expect models.MaintenanceStatus) error {
	return deleteByID(ctx, s.maintenance, id, []string{string(expect)})
}

func fuelLogQuery(f models.FuelLogFilter) bson.M {
	var conds []bson.M
	conds = eq(conds, "vehicle_id", f.VehicleID)
	conds = eq(conds, "trip_id", f.TripID)
	return and(conds)
}

// InsertFuelLog inserts a fuel log into the collection.
func (s *MongoStore) InsertFuelLog(ctx context.Context, log *models.FuelLog) error {
	stamp(&log.ID, &log.CreatedAt, &log.UpdatedAt)
	return insertOne(ctx, s.fuelLogs, log)
}

// FindFuelLogs queries fuel logs from the collection.
func (s *MongoStore) FindFuelLogs(ctx context.Context, filter models.FuelLogFilter) ([]models.FuelLog, error) {
	logs := []models.FuelLog{}
	err := findAll(ctx, s.fuelLogs, fuelLogQuery(filter), byDateDesc, &logs)
	return logs, err
}

// FindFuelLogByID finds a fuel log by its ID.
func (s *MongoStore) FindFuelLogByID(ctx context.Context, id string) (*models.FuelLog, error) {
	var log models.FuelLog
	if err := findByID(ctx, s.fuelLogs, id, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// ReplaceFuelLog updates a fuel log by its ID.
func (s *MongoStore) ReplaceFuelLog(ctx context.Context, log models.FuelLog) error {
	log.UpdatedAt = nowUTC()
	return replaceByID(ctx, s.fuelLogs, log.ID, log, "")
}

// DeleteFuelLog deletes a fuel log by its ID.
func (s *MongoStore) DeleteFuelLog(ctx context.Context, id string) error {
	return deleteByID(ctx, s.fuelLogs, id, nil)
}

func expenseQuery(f models.ExpenseFilter) bson.M {
	var conds []bson.M
	conds = eq(conds, "vehicle_id", f.VehicleID)
	conds = eq(conds, "trip_id", f.TripID)
	return and(conds)
}

// InsertExpense inserts an expense into the collection.
func (s *MongoStore) InsertExpense(ctx context.Context, expense *models.Expense) error {
	stamp(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	return insertOne(ctx, s.expenses, expense)
}

// FindExpenses queries expenses from the collection.
func (s *MongoStore) FindExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	expenses := []models.Expense{}
	err := findAll(ctx, s.expenses, expenseQuery(filter), byDateDesc, &expenses)
	return expenses, err
}

// FindExpenseByID finds an expense by its ID.
func (s *MongoStore) FindExpenseByID(ctx context.Context, id string) (*models.Expense, error) {
	var expense models.Expense
	if err := findByID(ctx, s.expenses, id, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// ReplaceExpense updates an expense by its ID.
func (s *MongoStore) ReplaceExpense(ctx context.Context, expense models.Expense) error {
	expense.UpdatedAt = nowUTC()
	return replaceByID(ctx, s.expenses, expense.ID, expense, "")
}

// DeleteExpense deletes an expense by its ID.
func (s *MongoStore) DeleteExpense(ctx context.Context, id string) error {
	return deleteByID(ctx, s.expenses, id, nil)
}
