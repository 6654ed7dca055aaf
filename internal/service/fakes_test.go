package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/car-service/internal/domain"
	"github.com/spec-kit/car-service/internal/events"
	"github.com/spec-kit/car-service/internal/repository"
)

// memStore backs the in-memory repository fakes. UpdateGuarded mirrors the
// compare-and-swap semantics of the Postgres implementation.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	vehicles map[string]*domain.Vehicle
	services map[string]*domain.ServiceRequest
	history  map[string][]domain.ServiceHistory
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*domain.User),
		vehicles: make(map[string]*domain.Vehicle),
		services: make(map[string]*domain.ServiceRequest),
		history:  make(map[string][]domain.ServiceHistory),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func cloneService(svc *domain.ServiceRequest) *domain.ServiceRequest {
	copied := *svc
	if svc.EmployeeID != nil {
		v := *svc.EmployeeID
		copied.EmployeeID = &v
	}
	if svc.PreferredDate != nil {
		v := *svc.PreferredDate
		copied.PreferredDate = &v
	}
	if svc.ScheduledDate != nil {
		v := *svc.ScheduledDate
		copied.ScheduledDate = &v
	}
	if svc.EstimatedCost != nil {
		v := *svc.EstimatedCost
		copied.EstimatedCost = &v
	}
	if svc.ActualCost != nil {
		v := *svc.ActualCost
		copied.ActualCost = &v
	}
	return &copied
}

func cloneUser(user *domain.User) *domain.User {
	copied := *user
	if user.LastLogin != nil {
		v := *user.LastLogin
		copied.LastLogin = &v
	}
	return &copied
}

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.ID = r.store.nextID("user")
	r.store.users[user.ID] = cloneUser(user)
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.store.users[user.ID] = cloneUser(user)
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneUser(user), nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Username == username {
			return cloneUser(user), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.User
	for _, user := range r.store.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(user.Username, *filter.SearchTerm) {
			continue
		}
		result = append(result, *cloneUser(user))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeVehicleRepo struct{ store *memStore }

func (r *fakeVehicleRepo) Create(_ context.Context, vehicle *domain.Vehicle) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	vehicle.ID = r.store.nextID("veh")
	copied := *vehicle
	r.store.vehicles[vehicle.ID] = &copied
	return nil
}

func (r *fakeVehicleRepo) Update(_ context.Context, vehicle *domain.Vehicle) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.vehicles[vehicle.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *vehicle
	r.store.vehicles[vehicle.ID] = &copied
	return nil
}

func (r *fakeVehicleRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.vehicles[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.vehicles, id)
	return nil
}

func (r *fakeVehicleRepo) GetByID(_ context.Context, id string) (*domain.Vehicle, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	vehicle, ok := r.store.vehicles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *vehicle
	return &copied, nil
}

func (r *fakeVehicleRepo) GetByVIN(_ context.Context, vin string) (*domain.Vehicle, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, vehicle := range r.store.vehicles {
		if vehicle.VIN == vin {
			copied := *vehicle
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeVehicleRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Vehicle, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Vehicle
	for _, vehicle := range r.store.vehicles {
		if vehicle.OwnerID == ownerID {
			result = append(result, *vehicle)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeVehicleRepo) CountByOwner(_ context.Context, ownerID string) (int, error) {
	vehicles, _ := r.ListByOwner(context.Background(), ownerID)
	return len(vehicles), nil
}

type fakeServiceRepo struct {
	store *memStore

	// beforeUpdate runs inside UpdateGuarded before the status check, letting
	// tests interleave a concurrent writer between read and commit.
	beforeUpdate func()
}

func (r *fakeServiceRepo) CreateWithHistory(_ context.Context, svc *domain.ServiceRequest, entry *domain.ServiceHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	svc.ID = r.store.nextID("srv")
	svc.CreatedAt = entry.CreatedAt
	svc.UpdatedAt = entry.CreatedAt
	r.store.services[svc.ID] = cloneService(svc)

	entry.ID = r.store.nextID("hist")
	entry.ServiceID = svc.ID
	r.store.history[svc.ID] = append(r.store.history[svc.ID], *entry)
	return nil
}

func (r *fakeServiceRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	svc, ok := r.store.services[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneService(svc), nil
}

func (r *fakeServiceRepo) ListWithFilter(_ context.Context, filter repository.ServiceFilter) ([]domain.ServiceRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.ServiceRequest
	for _, svc := range r.store.services {
		if filter.ClientID != nil && svc.ClientID != *filter.ClientID {
			continue
		}
		if filter.VehicleID != nil && svc.VehicleID != *filter.VehicleID {
			continue
		}
		if filter.EmployeeID != nil && (svc.EmployeeID == nil || *svc.EmployeeID != *filter.EmployeeID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if svc.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, *cloneService(svc))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *fakeServiceRepo) UpdateGuarded(_ context.Context, svc *domain.ServiceRequest, expected domain.ServiceStatus, entry *domain.ServiceHistory) error {
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		hook()
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.services[svc.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if current.Status != expected {
		return repository.ErrStaleStatus
	}

	svc.UpdatedAt = entry.CreatedAt
	r.store.services[svc.ID] = cloneService(svc)

	entry.ID = r.store.nextID("hist")
	entry.ServiceID = svc.ID
	r.store.history[svc.ID] = append(r.store.history[svc.ID], *entry)
	return nil
}

func (r *fakeServiceRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.services[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.services, id)
	delete(r.store.history, id)
	return nil
}

func (r *fakeServiceRepo) CountByStatus(_ context.Context) (map[domain.ServiceStatus]int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	counts := make(map[domain.ServiceStatus]int64)
	for _, svc := range r.store.services {
		counts[svc.Status]++
	}
	return counts, nil
}

type fakeHistoryRepo struct{ store *memStore }

func (r *fakeHistoryRepo) ListByService(_ context.Context, serviceID string, limit, offset int) ([]domain.ServiceHistory, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entries := append([]domain.ServiceHistory{}, r.store.history[serviceID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if offset > 0 {
		if offset >= len(entries) {
			return nil, nil
		}
		entries = entries[offset:]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// tickingClock hands out strictly increasing timestamps.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}
