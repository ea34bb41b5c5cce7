package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"gorm.io/gorm"
)

type fakeLineRepo struct {
	lines    map[uuid.UUID]*models.CartLine
	services map[uuid.UUID]*models.CatalogService
}

func newFakeLineRepo() *fakeLineRepo {
	return &fakeLineRepo{
		lines:    make(map[uuid.UUID]*models.CartLine),
		services: make(map[uuid.UUID]*models.CatalogService),
	}
}

// attach mimics the Preload("Service") the GORM repository performs.
func (f *fakeLineRepo) attach(line models.CartLine) models.CartLine {
	line.Service = f.services[line.ServiceID]
	return line
}

func (f *fakeLineRepo) WithTx(tx *gorm.DB) LineRepository { return f }

func (f *fakeLineRepo) Create(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	copied := *line
	f.lines[line.ID] = &copied
	return line, nil
}

func (f *fakeLineRepo) Update(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	copied := *line
	f.lines[line.ID] = &copied
	return line, nil
}

func (f *fakeLineRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.lines, id)
	return nil
}

func (f *fakeLineRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CartLine, error) {
	if line, ok := f.lines[id]; ok {
		copied := f.attach(*line)
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLineRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	var rows []models.CartLine
	for _, line := range f.lines {
		if line.UserID != nil && *line.UserID == userID {
			rows = append(rows, f.attach(*line))
		}
	}
	return rows, nil
}

func (f *fakeLineRepo) ListForTokens(ctx context.Context, tokens []string) ([]models.CartLine, error) {
	var rows []models.CartLine
	for _, line := range f.lines {
		if line.SessionToken == nil {
			continue
		}
		for _, token := range tokens {
			if *line.SessionToken == token {
				rows = append(rows, f.attach(*line))
				break
			}
		}
	}
	return rows, nil
}

func (f *fakeLineRepo) FindUserLine(ctx context.Context, userID, serviceID uuid.UUID, size enums.ServiceSize, date *time.Time) (*models.CartLine, error) {
	for _, line := range f.lines {
		if line.UserID != nil && *line.UserID == userID &&
			line.ServiceID == serviceID && line.Size == size && sameDate(line.Date, date) {
			copied := *line
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLineRepo) FindTokenLine(ctx context.Context, token string, serviceID uuid.UUID, size enums.ServiceSize, date *time.Time) (*models.CartLine, error) {
	for _, line := range f.lines {
		if line.SessionToken != nil && *line.SessionToken == token &&
			line.ServiceID == serviceID && line.Size == size && sameDate(line.Date, date) {
			copied := *line
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLineRepo) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	for id, line := range f.lines {
		if line.UserID != nil && *line.UserID == userID {
			delete(f.lines, id)
		}
	}
	return nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (f *fakeLineRepo) totalQuantity() int {
	total := 0
	for _, line := range f.lines {
		total += line.Quantity
	}
	return total
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCatalog struct {
	services map[uuid.UUID]*models.CatalogService
}

func (s stubCatalog) PriceFor(ctx context.Context, id uuid.UUID, size enums.ServiceSize) (*models.CatalogService, error) {
	svc, ok := s.services[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
	}
	if _, offered := svc.PriceFor(size); !offered {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size not offered for this service")
	}
	return svc, nil
}

type captureBookingWriter struct {
	created []models.Booking
	err     error
}

func (c *captureBookingWriter) CreateAllTx(ctx context.Context, tx *gorm.DB, rows []models.Booking) error {
	if c.err != nil {
		return c.err
	}
	c.created = append(c.created, rows...)
	return nil
}

func testFixture(t *testing.T) (*fakeLineRepo, *captureBookingWriter, Service, *models.CatalogService) {
	t.Helper()

	small := decimal.RequireFromString("25.00")
	medium := decimal.RequireFromString("40.00")
	mowing := &models.CatalogService{
		ID:          uuid.New(),
		Name:        "Lawn Mowing",
		SmallPrice:  &small,
		MediumPrice: &medium,
	}

	repo := newFakeLineRepo()
	repo.services[mowing.ID] = mowing
	bookings := &captureBookingWriter{}
	svc, err := NewService(repo, stubTxRunner{}, stubCatalog{services: map[uuid.UUID]*models.CatalogService{mowing.ID: mowing}}, bookings, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return repo, bookings, svc, mowing
}

func guestActor(token string) identity.Identity {
	return identity.Identity{GuestToken: token}
}

func userActor(userID uuid.UUID) identity.Identity {
	id := userID
	return identity.Identity{UserID: &id, Roles: enums.RoleCustomer}
}

func TestAddLineRequiresGuestToken(t *testing.T) {
	t.Parallel()

	_, _, svc, mowing := testFixture(t)

	_, err := svc.AddLine(context.Background(), identity.Identity{}, AddLineInput{
		ServiceID: mowing.ID,
		Size:      enums.ServiceSizeSmall,
		Quantity:  1,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for anonymous actor without token, got %v", err)
	}
}

func TestAddLineMergesSameSelection(t *testing.T) {
	t.Parallel()

	repo, _, svc, mowing := testFixture(t)
	actor := guestActor("guest-tok")
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	first, err := svc.AddLine(context.Background(), actor, AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 2, Date: &date,
	})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}

	second, err := svc.AddLine(context.Background(), actor, AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 3, Date: &date,
	})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if second.ID != first.ID {
		t.Fatal("expected the same line to absorb the added quantity")
	}
	if second.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", second.Quantity)
	}
	if len(repo.lines) != 1 {
		t.Fatalf("expected a single line, got %d", len(repo.lines))
	}

	// A different size is a separate line.
	_, err = svc.AddLine(context.Background(), actor, AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeMedium, Quantity: 1, Date: &date,
	})
	if err != nil {
		t.Fatalf("medium add: %v", err)
	}
	if len(repo.lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(repo.lines))
	}
}

func TestAddLineRejectsUnofferedSize(t *testing.T) {
	t.Parallel()

	_, _, svc, mowing := testFixture(t)

	_, err := svc.AddLine(context.Background(), guestActor("tok"), AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeLarge, Quantity: 1,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReconcileMergesAndReparents(t *testing.T) {
	t.Parallel()

	repo, _, svc, mowing := testFixture(t)
	userID := uuid.New()
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	otherDate := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)

	// User already has Lawn Mowing small x2 for June 1st.
	if _, err := svc.AddLine(context.Background(), userActor(userID), AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 2, Date: &date,
	}); err != nil {
		t.Fatalf("seed user line: %v", err)
	}

	// Guest added the same selection x1 plus a different date x4.
	guest := guestActor("guest-tok")
	if _, err := svc.AddLine(context.Background(), guest, AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 1, Date: &date,
	}); err != nil {
		t.Fatalf("seed guest line: %v", err)
	}
	if _, err := svc.AddLine(context.Background(), guest, AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 4, Date: &otherDate,
	}); err != nil {
		t.Fatalf("seed second guest line: %v", err)
	}

	before := repo.totalQuantity()

	result, err := svc.Reconcile(context.Background(), userID, []string{"guest-tok"})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Merged != 1 || result.Reparented != 1 {
		t.Fatalf("expected 1 merged and 1 reparented, got %+v", result)
	}

	if got := repo.totalQuantity(); got != before {
		t.Fatalf("quantity not conserved: before %d, after %d", before, got)
	}

	merged, err := repo.FindUserLine(context.Background(), userID, mowing.ID, enums.ServiceSizeSmall, &date)
	if err != nil {
		t.Fatalf("find merged line: %v", err)
	}
	if merged.Quantity != 3 {
		t.Fatalf("expected 2+1=3 after merge, got %d", merged.Quantity)
	}

	reparented, err := repo.FindUserLine(context.Background(), userID, mowing.ID, enums.ServiceSizeSmall, &otherDate)
	if err != nil {
		t.Fatalf("find reparented line: %v", err)
	}
	if reparented.Quantity != 4 {
		t.Fatalf("expected reparented quantity 4, got %d", reparented.Quantity)
	}
	if reparented.SessionToken != nil {
		t.Fatal("reparented line must drop its session token")
	}

	// No guest-owned lines remain.
	leftovers, err := repo.ListForTokens(context.Background(), []string{"guest-tok"})
	if err != nil {
		t.Fatalf("list leftovers: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("expected no guest lines after reconcile, got %d", len(leftovers))
	}
}

func TestReconcileWithoutTokensIsNoop(t *testing.T) {
	t.Parallel()

	_, _, svc, _ := testFixture(t)

	result, err := svc.Reconcile(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Merged != 0 || result.Reparented != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestUpdateQuantityOwnership(t *testing.T) {
	t.Parallel()

	_, _, svc, mowing := testFixture(t)
	owner := userActor(uuid.New())

	line, err := svc.AddLine(context.Background(), owner, AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// Another user may not touch it.
	_, err = svc.UpdateQuantity(context.Background(), userActor(uuid.New()), line.ID, 5)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign user, got %v", err)
	}

	// Neither may a guest.
	_, err = svc.UpdateQuantity(context.Background(), guestActor("tok"), line.ID, 5)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for guest, got %v", err)
	}

	updated, err := svc.UpdateQuantity(context.Background(), owner, line.ID, 5)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", updated.Quantity)
	}
}

func TestRemoveLineByTokenPrecedence(t *testing.T) {
	t.Parallel()

	repo, _, svc, mowing := testFixture(t)

	line, err := svc.AddLine(context.Background(), guestActor("form-tok"), AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// A form-supplied token matches even when the cookies differ.
	actor := identity.Identity{GuestToken: "other-cookie", FormToken: "form-tok"}
	if err := svc.RemoveLine(context.Background(), actor, line.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(repo.lines) != 0 {
		t.Fatal("expected line removed")
	}
}

func TestSummaryTotals(t *testing.T) {
	t.Parallel()

	_, _, svc, mowing := testFixture(t)
	actor := guestActor("tok")

	mustAdd := func(size enums.ServiceSize, qty int) {
		t.Helper()
		if _, err := svc.AddLine(context.Background(), actor, AddLineInput{
			ServiceID: mowing.ID, Size: size, Quantity: qty,
		}); err != nil {
			t.Fatalf("add %s x%d: %v", size, qty, err)
		}
	}
	mustAdd(enums.ServiceSizeSmall, 2)  // 2 x 25.00
	mustAdd(enums.ServiceSizeMedium, 1) // 1 x 40.00

	summary, err := svc.Summary(context.Background(), actor)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// Count reports distinct lines, so a quantity of 2 still counts once.
	if summary.Count != 2 {
		t.Fatalf("expected count 2, got %d", summary.Count)
	}
	if want := decimal.RequireFromString("90.00"); !summary.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, summary.Total)
	}
	if len(summary.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(summary.Items))
	}

	// Anonymous actor with no tokens gets an empty cart, not an error.
	empty, err := svc.Summary(context.Background(), identity.Identity{})
	if err != nil {
		t.Fatalf("empty summary: %v", err)
	}
	if empty.Count != 0 || len(empty.Items) != 0 {
		t.Fatalf("expected empty summary, got %+v", empty)
	}
}

func TestCheckoutConvertsLinesToPendingBookings(t *testing.T) {
	t.Parallel()

	repo, bookings, svc, mowing := testFixture(t)
	userID := uuid.New()
	date := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)

	if _, err := svc.AddLine(context.Background(), userActor(userID), AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 2, Date: &date,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	created, err := svc.Checkout(context.Background(), userID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(created) != 1 || len(bookings.created) != 1 {
		t.Fatalf("expected one booking, got %d", len(bookings.created))
	}
	booking := bookings.created[0]
	if booking.Status != enums.BookingStatusPending {
		t.Fatalf("expected pending status, got %s", booking.Status)
	}
	if booking.Quantity != 2 || !booking.Date.Equal(date) {
		t.Fatalf("booking does not mirror the cart line: %+v", booking)
	}
	if len(repo.lines) != 0 {
		t.Fatal("expected cart cleared after checkout")
	}
}

func TestCheckoutValidation(t *testing.T) {
	t.Parallel()

	_, _, svc, mowing := testFixture(t)
	userID := uuid.New()

	_, err := svc.Checkout(context.Background(), userID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}

	// A line without a date blocks checkout.
	if _, err := svc.AddLine(context.Background(), userActor(userID), AddLineInput{
		ServiceID: mowing.ID, Size: enums.ServiceSizeSmall, Quantity: 1,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err = svc.Checkout(context.Background(), userID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for undated line, got %v", err)
	}
}
