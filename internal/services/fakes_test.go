package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/croffers/journey-backend/internal/database"
	"github.com/croffers/journey-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// memDB backs the in-memory stores. writes counts every mutating call so tests
// can assert that an operation had no side effects.
type memDB struct {
	mu       sync.Mutex
	journeys map[uuid.UUID]models.Journey
	segments map[uuid.UUID]models.JourneySegment
	bookings map[uuid.UUID]models.Booking
	writes   int
}

func newMemDB() *memDB {
	return &memDB{
		journeys: make(map[uuid.UUID]models.Journey),
		segments: make(map[uuid.UUID]models.JourneySegment),
		bookings: make(map[uuid.UUID]models.Booking),
	}
}

func (db *memDB) writeCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.writes
}

// journeySegments returns the segments of a journey ordered by segment_order.
// Caller holds mu.
func (db *memDB) journeySegments(journeyID uuid.UUID) []models.JourneySegment {
	segments := make([]models.JourneySegment, 0)
	for _, seg := range db.segments {
		if seg.JourneyID == journeyID {
			segments = append(segments, seg)
		}
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].SegmentOrder < segments[j].SegmentOrder })
	return segments
}

// recompute stores and returns the sum of non-cancelled segment prices. Caller holds mu.
func (db *memDB) recompute(journeyID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, seg := range db.journeySegments(journeyID) {
		if !seg.IsCancelled {
			total = total.Add(seg.Price)
		}
	}
	if j, ok := db.journeys[journeyID]; ok {
		j.TotalPrice = total
		db.journeys[journeyID] = j
	}
	return total
}

// ============================================================================
// JOURNEYS
// ============================================================================

type memJourneys struct{ db *memDB }

func (s *memJourneys) CreateWithinCap(_ context.Context, journey *models.Journey, statuses []models.JourneyStatus, limit int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	count := 0
	for _, j := range s.db.journeys {
		if j.UserID == journey.UserID && hasStatus(statuses, j.Status) {
			count++
		}
	}
	if count >= limit {
		return database.ErrPlanningCapReached
	}
	s.db.writes++
	now := time.Now()
	journey.CreatedAt, journey.UpdatedAt = now, now
	stored := *journey
	stored.Segments = nil
	s.db.journeys[journey.ID] = stored
	return nil
}

func (s *memJourneys) GetByID(_ context.Context, id uuid.UUID) (*models.Journey, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	j, ok := s.db.journeys[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (s *memJourneys) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Journey, error) {
	all, _ := s.ListAllByUser(ctx, userID)
	if offset >= len(all) {
		return []models.Journey{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *memJourneys) ListAllByUser(_ context.Context, userID uuid.UUID) ([]models.Journey, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	journeys := make([]models.Journey, 0)
	for _, j := range s.db.journeys {
		if j.UserID == userID {
			journeys = append(journeys, j)
		}
	}
	sort.Slice(journeys, func(i, k int) bool { return journeys[i].CreatedAt.After(journeys[k].CreatedAt) })
	return journeys, nil
}

func (s *memJourneys) ListOwnerIDs(_ context.Context) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	owners := make([]uuid.UUID, 0)
	for _, j := range s.db.journeys {
		if !j.Status.IsTerminal() && !seen[j.UserID] {
			seen[j.UserID] = true
			owners = append(owners, j.UserID)
		}
	}
	return owners, nil
}

func (s *memJourneys) ListEndedBefore(_ context.Context, cutoff time.Time, statuses []models.JourneyStatus) ([]models.Journey, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	journeys := make([]models.Journey, 0)
	for _, j := range s.db.journeys {
		if j.EndDate.Before(cutoff) && hasStatus(statuses, j.Status) {
			journeys = append(journeys, j)
		}
	}
	return journeys, nil
}

func (s *memJourneys) Update(_ context.Context, journey *models.Journey, prices map[uuid.UUID]decimal.Decimal) (decimal.Decimal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.journeys[journey.ID]
	if !ok {
		return decimal.Zero, fmt.Errorf("journey %s not found", journey.ID)
	}
	if stored.Travelers != journey.Travelers {
		for _, seg := range s.db.journeySegments(journey.ID) {
			if seg.IsBooked {
				return decimal.Zero, database.ErrTravelersLocked
			}
		}
	}
	s.db.writes++
	stored.Name = journey.Name
	stored.StartDate = journey.StartDate
	stored.EndDate = journey.EndDate
	stored.Travelers = journey.Travelers
	stored.Preferences = journey.Preferences
	stored.UpdatedAt = time.Now()
	s.db.journeys[journey.ID] = stored
	for id, price := range prices {
		seg := s.db.segments[id]
		if seg.JourneyID == journey.ID && !seg.IsBooked {
			seg.Price = price
			s.db.segments[id] = seg
		}
	}
	return s.db.recompute(journey.ID), nil
}

func (s *memJourneys) UpdateStatus(_ context.Context, id uuid.UUID, status models.JourneyStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.journeys[id]
	if !ok {
		return fmt.Errorf("journey %s not found", id)
	}
	s.db.writes++
	stored.Status = status
	s.db.journeys[id] = stored
	return nil
}

func (s *memJourneys) TransitionStatus(_ context.Context, id uuid.UUID, from []models.JourneyStatus, status models.JourneyStatus) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.journeys[id]
	if !ok || !hasStatus(from, stored.Status) {
		return false, nil
	}
	s.db.writes++
	stored.Status = status
	s.db.journeys[id] = stored
	return true, nil
}

func (s *memJourneys) RecalculateTotalPrice(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++
	return s.db.recompute(id), nil
}

func (s *memJourneys) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++
	delete(s.db.journeys, id)
	for segID, seg := range s.db.segments {
		if seg.JourneyID == id {
			delete(s.db.segments, segID)
		}
	}
	return nil
}

func hasStatus(statuses []models.JourneyStatus, status models.JourneyStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// ============================================================================
// SEGMENTS
// ============================================================================

type memSegments struct{ db *memDB }

func (s *memSegments) ListByJourney(_ context.Context, journeyID uuid.UUID) ([]models.JourneySegment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.journeySegments(journeyID), nil
}

func (s *memSegments) GetByID(_ context.Context, id uuid.UUID) (*models.JourneySegment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	seg, ok := s.db.segments[id]
	if !ok {
		return nil, nil
	}
	return &seg, nil
}

func (s *memSegments) InsertAt(_ context.Context, segment *models.JourneySegment, afterOrder *int) (decimal.Decimal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++

	existing := s.db.journeySegments(segment.JourneyID)
	position := len(existing)
	if afterOrder != nil && *afterOrder < len(existing) {
		position = *afterOrder
		if position < 0 {
			position = 0
		}
		for _, seg := range existing {
			if seg.SegmentOrder > position {
				seg.SegmentOrder++
				s.db.segments[seg.ID] = seg
			}
		}
	}
	segment.SegmentOrder = position + 1
	s.db.segments[segment.ID] = *segment
	return s.db.recompute(segment.JourneyID), nil
}

func (s *memSegments) Update(_ context.Context, segment *models.JourneySegment) (decimal.Decimal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++
	s.db.segments[segment.ID] = *segment
	return s.db.recompute(segment.JourneyID), nil
}

func (s *memSegments) Delete(_ context.Context, journeyID, segmentID uuid.UUID) (decimal.Decimal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	removed, ok := s.db.segments[segmentID]
	if !ok || removed.JourneyID != journeyID {
		return decimal.Zero, fmt.Errorf("segment %s not found", segmentID)
	}
	s.db.writes++
	delete(s.db.segments, segmentID)
	for _, seg := range s.db.journeySegments(journeyID) {
		if seg.SegmentOrder > removed.SegmentOrder {
			seg.SegmentOrder--
			s.db.segments[seg.ID] = seg
		}
	}
	return s.db.recompute(journeyID), nil
}

func (s *memSegments) Reorder(_ context.Context, journeyID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++
	for i, seg := range s.db.journeySegments(journeyID) {
		seg.SegmentOrder = i + 1
		s.db.segments[seg.ID] = seg
	}
	return nil
}

func (s *memSegments) LinkBooking(_ context.Context, bookingID uuid.UUID, segmentIDs []uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++
	for _, id := range segmentIDs {
		seg := s.db.segments[id]
		seg.BookingID = &bookingID
		seg.IsBooked = true
		s.db.segments[id] = seg
	}
	return nil
}

func (s *memSegments) MarkConfirmed(_ context.Context, journeyID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++
	for _, seg := range s.db.journeySegments(journeyID) {
		if !seg.IsCancelled {
			seg.IsConfirmed = true
			s.db.segments[seg.ID] = seg
		}
	}
	return nil
}

func (s *memSegments) MarkCancelledByBooking(_ context.Context, journeyID, bookingID uuid.UUID, reason string, at time.Time) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++
	changed := 0
	for _, seg := range s.db.journeySegments(journeyID) {
		if seg.BookingID == nil || *seg.BookingID != bookingID || seg.IsCancelled {
			continue
		}
		seg.IsCancelled = true
		seg.IsConfirmed = false
		seg.CancelledAt = &at
		seg.CancellationReason = &reason
		s.db.segments[seg.ID] = seg
		changed++
	}
	s.db.recompute(journeyID)
	return changed, nil
}

func (s *memSegments) ReplaceService(_ context.Context, segment *models.JourneySegment) (decimal.Decimal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.segments[segment.ID]
	if !ok || !stored.IsCancelled {
		return decimal.Zero, fmt.Errorf("segment %s is no longer cancelled", segment.ID)
	}
	s.db.writes++
	stored.ServiceID = segment.ServiceID
	stored.Price = segment.Price
	stored.Currency = segment.Currency
	stored.DurationMinutes = segment.DurationMinutes
	stored.IsBooked, stored.IsConfirmed, stored.IsCancelled = false, false, false
	stored.CancelledAt, stored.CancellationReason, stored.BookingID = nil, nil, nil
	s.db.segments[segment.ID] = stored
	return s.db.recompute(segment.JourneyID), nil
}

// ============================================================================
// BOOKINGS
// ============================================================================

type memBookings struct{ db *memDB }

func (s *memBookings) Create(_ context.Context, booking *models.Booking) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.writes++
	s.db.bookings[booking.ID] = *booking
	return nil
}

func (s *memBookings) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *memBookings) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	bookings := make([]models.Booking, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.db.bookings[id]; ok {
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}

func (s *memBookings) ListByJourney(_ context.Context, journeyID uuid.UUID) ([]models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	bookings := make([]models.Booking, 0)
	for _, b := range s.db.bookings {
		if b.JourneyID != nil && *b.JourneyID == journeyID {
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}

func (s *memBookings) ListBySupplier(_ context.Context, supplierID uuid.UUID, status *models.BookingStatus, limit, offset int) ([]models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	bookings := make([]models.Booking, 0)
	for _, b := range s.db.bookings {
		if b.SupplierID == supplierID && (status == nil || b.Status == *status) {
			bookings = append(bookings, b)
		}
	}
	if offset >= len(bookings) {
		return []models.Booking{}, nil
	}
	if end := offset + limit; end < len(bookings) {
		return bookings[offset:end], nil
	}
	return bookings[offset:], nil
}

func (s *memBookings) Cancel(_ context.Context, booking *models.Booking) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.bookings[booking.ID]
	if !ok || !stored.Status.IsActive() {
		return database.ErrBookingNotActive
	}
	s.db.writes++
	s.db.bookings[booking.ID] = *booking
	return nil
}

func (s *memBookings) Confirm(_ context.Context, booking *models.Booking) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.bookings[booking.ID]
	if !ok || stored.Status != models.BookingStatusPending {
		return database.ErrBookingNotActive
	}
	s.db.writes++
	s.db.bookings[booking.ID] = *booking
	return nil
}

// ============================================================================
// CATALOG
// ============================================================================

type memCatalog struct {
	locations map[uuid.UUID]models.Location
	services  map[uuid.UUID]models.CatalogService
	suppliers map[uuid.UUID]models.Supplier
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		locations: make(map[uuid.UUID]models.Location),
		services:  make(map[uuid.UUID]models.CatalogService),
		suppliers: make(map[uuid.UUID]models.Supplier),
	}
}

func (c *memCatalog) addLocation(name string, locationType models.LocationType, parent *uuid.UUID) uuid.UUID {
	id := uuid.New()
	c.locations[id] = models.Location{ID: id, Name: name, Type: locationType, ParentID: parent}
	return id
}

func (c *memCatalog) addSupplier(name string) models.Supplier {
	supplier := models.Supplier{ID: uuid.New(), OwnerUserID: uuid.New(), Name: name}
	c.suppliers[supplier.ID] = supplier
	return supplier
}

func (c *memCatalog) addService(svc models.CatalogService) models.CatalogService {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	if svc.Currency == "" {
		svc.Currency = "EUR"
	}
	svc.IsActive = true
	c.services[svc.ID] = svc
	return svc
}

func (c *memCatalog) GetService(_ context.Context, id uuid.UUID) (*models.CatalogService, error) {
	svc, ok := c.services[id]
	if !ok {
		return nil, nil
	}
	return &svc, nil
}

func (c *memCatalog) GetLocation(_ context.Context, id uuid.UUID) (*models.Location, error) {
	loc, ok := c.locations[id]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (c *memCatalog) ListChildLocationIDs(_ context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for _, loc := range c.locations {
		if loc.ParentID != nil && *loc.ParentID == parentID {
			ids = append(ids, loc.ID)
		}
	}
	return ids, nil
}

func (c *memCatalog) SearchServices(_ context.Context, search models.ServiceSearch) ([]models.CatalogService, error) {
	services := make([]models.CatalogService, 0)
	for _, svc := range c.services {
		if !svc.IsActive || svc.Type != search.Type {
			continue
		}
		if search.ExcludeServiceID != nil && svc.ID == *search.ExcludeServiceID {
			continue
		}
		if len(search.LocationIDs) > 0 && !inIDs(search.LocationIDs, svc.LocationID) {
			continue
		}
		if len(search.DepartureLocationIDs) > 0 && !inIDs(search.DepartureLocationIDs, svc.DepartureLocationID) {
			continue
		}
		if len(search.ArrivalLocationIDs) > 0 && !inIDs(search.ArrivalLocationIDs, svc.ArrivalLocationID) {
			continue
		}
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Price.LessThan(services[j].Price) })
	if search.Limit > 0 && len(services) > search.Limit {
		services = services[:search.Limit]
	}
	return services, nil
}

func (c *memCatalog) GetSupplierByOwner(_ context.Context, userID uuid.UUID) (*models.Supplier, error) {
	for _, s := range c.suppliers {
		if s.OwnerUserID == userID {
			return &s, nil
		}
	}
	return nil, nil
}

func inIDs(ids []uuid.UUID, id *uuid.UUID) bool {
	if id == nil {
		return false
	}
	for _, candidate := range ids {
		if candidate == *id {
			return true
		}
	}
	return false
}

// ============================================================================
// COLLABORATORS
// ============================================================================

// recordingNotifier keeps every notification it is asked to send
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.SupplierBookingNotification
	err  error
}

func (n *recordingNotifier) NotifySupplierNewBooking(_ context.Context, notification models.SupplierBookingNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// flakyGateway rejects booking requests for the listed suppliers
type flakyGateway struct {
	BookingGateway
	failFor map[uuid.UUID]bool
}

func (g *flakyGateway) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.BookingRef, error) {
	if g.failFor[req.SupplierID] {
		return nil, errors.New("supplier system unavailable")
	}
	return g.BookingGateway.CreateBooking(ctx, req)
}

type memNotifications struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.SupplierNotification
}

func (s *memNotifications) Create(_ context.Context, n *models.SupplierNotification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[n.BookingID]; ok {
		return false, nil
	}
	n.ID = uuid.New()
	s.items[n.BookingID] = *n
	return true, nil
}

// ============================================================================
// HARNESS
// ============================================================================

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// harness is a fully wired journey core on top of the in-memory stores
type harness struct {
	db       *memDB
	catalog  *memCatalog
	bookings *BookingService
	journeys *JourneyService
	notifier *recordingNotifier
	gateway  *flakyGateway

	userID uuid.UUID

	island, port, town, village uuid.UUID

	hotelSupplier, tourSupplier, ferrySupplier models.Supplier

	hotel, altHotel, tour, ferry models.CatalogService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		db:       newMemDB(),
		catalog:  newMemCatalog(),
		notifier: &recordingNotifier{},
		userID:   uuid.New(),
	}

	region := h.catalog.addLocation("Cyclades", models.LocationTypeRegion, nil)
	h.island = h.catalog.addLocation("Naxos", models.LocationTypeIsland, &region)
	h.port = h.catalog.addLocation("Piraeus", models.LocationTypePort, nil)
	h.town = h.catalog.addLocation("Chora", models.LocationTypeCity, &h.island)
	h.village = h.catalog.addLocation("Filoti", models.LocationTypeCity, &h.island)

	h.hotelSupplier = h.catalog.addSupplier("Aegean Stays")
	h.tourSupplier = h.catalog.addSupplier("Island Walks")
	h.ferrySupplier = h.catalog.addSupplier("Blue Ferries")

	h.hotel = h.catalog.addService(models.CatalogService{
		SupplierID: h.hotelSupplier.ID,
		Type:       models.SegmentTypeAccommodation,
		Name:       "Harbour Hotel",
		Price:      decimal.NewFromInt(100),
		LocationID: &h.town,
	})
	h.altHotel = h.catalog.addService(models.CatalogService{
		SupplierID: h.hotelSupplier.ID,
		Type:       models.SegmentTypeAccommodation,
		Name:       "Mountain Guesthouse",
		Price:      decimal.NewFromInt(80),
		LocationID: &h.village,
	})
	h.tour = h.catalog.addService(models.CatalogService{
		SupplierID: h.tourSupplier.ID,
		Type:       models.SegmentTypeTour,
		Name:       "Old Town Walk",
		Price:      decimal.NewFromInt(25),
		LocationID: &h.town,
		MinGuests:  intPtr(1),
		MaxGuests:  intPtr(6),
	})
	h.ferry = h.catalog.addService(models.CatalogService{
		SupplierID:          h.ferrySupplier.ID,
		Type:                models.SegmentTypeFerry,
		Name:                "Piraeus - Naxos",
		Price:               decimal.NewFromInt(60),
		DepartureLocationID: &h.port,
		ArrivalLocationID:   &h.island,
	})

	logger := quietLogger()
	h.bookings = NewBookingService(&memBookings{db: h.db}, h.catalog, decimal.RequireFromString("0.10"), logger)
	h.gateway = &flakyGateway{BookingGateway: h.bookings, failFor: make(map[uuid.UUID]bool)}
	h.journeys = h.serviceWith(&memJourneys{db: h.db}, &memSegments{db: h.db})
	h.bookings.OnCancelled(h.journeys.HandleBookingCancelled)
	return h
}

// serviceWith builds another journey service over the harness catalog,
// gateway and notifier, reading through the given stores
func (h *harness) serviceWith(journeys JourneyStore, segments SegmentStore) *JourneyService {
	logger := quietLogger()
	return NewJourneyService(
		journeys,
		segments,
		h.gateway,
		NewCatalogService(h.catalog, logger),
		h.notifier,
		2,
		JourneyServiceConfig{MaxActivePlans: 3, DefaultCurrency: "EUR"},
		logger,
	)
}

func (h *harness) plan(t *testing.T, travelers int) *models.Journey {
	t.Helper()
	journey, err := h.journeys.PlanJourney(context.Background(), h.userID, &models.PlanJourneyRequest{
		OriginLocationID:      h.port.String(),
		DestinationLocationID: h.island.String(),
		StartDate:             "2026-07-01",
		EndDate:               "2026-07-05",
		Travelers:             travelers,
	})
	if err != nil {
		t.Fatalf("plan journey: %v", err)
	}
	return journey
}

func (h *harness) add(t *testing.T, journeyID uuid.UUID, svc models.CatalogService, on int) *models.Journey {
	t.Helper()
	serviceID := svc.ID.String()
	req := &models.AddSegmentRequest{SegmentType: svc.Type, ServiceID: &serviceID}
	if svc.Type == models.SegmentTypeAccommodation {
		req.ArrivalTime = day(on)
	} else {
		req.DepartureTime = day(on)
	}
	journey, err := h.journeys.AddSegment(context.Background(), journeyID, h.userID, req)
	if err != nil {
		t.Fatalf("add segment: %v", err)
	}
	return journey
}

func (h *harness) stored(t *testing.T, journeyID uuid.UUID) *models.Journey {
	t.Helper()
	journey, err := h.journeys.GetJourney(context.Background(), journeyID, h.userID)
	if err != nil {
		t.Fatalf("get journey: %v", err)
	}
	return journey
}

func (h *harness) bookingFor(t *testing.T, segment models.JourneySegment) models.Booking {
	t.Helper()
	if segment.BookingID == nil {
		t.Fatalf("segment %s has no booking", segment.ID)
	}
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	return h.db.bookings[*segment.BookingID]
}

// activeSum is the sum of non-cancelled segment prices
func activeSum(journey *models.Journey) decimal.Decimal {
	total := decimal.Zero
	for _, seg := range journey.Segments {
		if !seg.IsCancelled {
			total = total.Add(seg.Price)
		}
	}
	return total
}

// assertDenseOrder fails unless segment orders are exactly 1..n
func assertDenseOrder(t *testing.T, journey *models.Journey) {
	t.Helper()
	for i, seg := range journey.Segments {
		if seg.SegmentOrder != i+1 {
			t.Fatalf("segment %d has order %d, want %d", i, seg.SegmentOrder, i+1)
		}
	}
}
