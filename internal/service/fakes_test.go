package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/lms-platform/payment-core/internal/models"
	"github.com/brightpath/lms-platform/payment-core/internal/provider"
)

// memStore is an in-memory stand-in for the Postgres repositories. Every
// mutation runs under one mutex, which models the atomicity the real store
// gets from wrapping the same writes in a single transaction.
type memStore struct {
	mu            sync.Mutex
	courses       map[string]*models.Course
	payments      map[string]*models.Payment // keyed by transaction id
	enrollments   map[string]*models.Enrollment
	registrations map[string]*models.Registration
	referrers     map[string]*models.Referrer
}

func newMemStore() *memStore {
	return &memStore{
		courses:       make(map[string]*models.Course),
		payments:      make(map[string]*models.Payment),
		enrollments:   make(map[string]*models.Enrollment),
		registrations: make(map[string]*models.Registration),
		referrers:     make(map[string]*models.Referrer),
	}
}

func enrollmentKey(learnerID, courseID string) string {
	return learnerID + "|" + courseID
}

// --- PaymentRepository ---

func (s *memStore) Create(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.TransactionID] = &cp
	return nil
}

func (s *memStore) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[transactionID]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) HasRecentPending(ctx context.Context, learnerID, courseID string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-window)
	for _, p := range s.payments {
		if p.LearnerID == learnerID && p.CourseID == courseID &&
			p.Status == models.PaymentPending && p.CreatedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Complete(ctx context.Context, transactionID, providerPaymentID string, paidAt time.Time) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[transactionID]
	if !ok {
		return "", false, models.ErrPaymentNotFound
	}
	if p.Status != models.PaymentPending {
		return "", false, nil
	}

	p.Status = models.PaymentCompleted
	p.ProviderPaymentID = &providerPaymentID
	p.PaidAt = &paidAt

	key := enrollmentKey(p.LearnerID, p.CourseID)
	e, exists := s.enrollments[key]
	switch {
	case !exists:
		e = &models.Enrollment{
			ID:         uuid.NewString(),
			LearnerID:  p.LearnerID,
			CourseID:   p.CourseID,
			Status:     models.EnrollmentActive,
			EnrolledAt: paidAt,
		}
		s.enrollments[key] = e
		s.bumpCounter(p.CourseID, 1)
	case e.Status == models.EnrollmentCancelled:
		e.Status = models.EnrollmentActive
		e.EnrolledAt = paidAt
		s.bumpCounter(p.CourseID, 1)
	}

	p.EnrollmentID = &e.ID
	return e.ID, true, nil
}

func (s *memStore) MarkFailed(ctx context.Context, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[transactionID]
	if !ok || p.Status != models.PaymentPending {
		return false, nil
	}
	p.Status = models.PaymentFailed
	return true, nil
}

func (s *memStore) Refund(ctx context.Context, transactionID string, amount int64, reason string, refundedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[transactionID]
	if !ok || p.Status != models.PaymentCompleted {
		return false, nil
	}
	p.Status = models.PaymentRefunded
	p.RefundAmount = &amount
	p.RefundReason = &reason
	p.RefundedAt = &refundedAt

	if p.EnrollmentID != nil {
		for _, e := range s.enrollments {
			if e.ID == *p.EnrollmentID &&
				(e.Status == models.EnrollmentActive || e.Status == models.EnrollmentCompleted) {
				e.Status = models.EnrollmentCancelled
				s.bumpCounter(p.CourseID, -1)
			}
		}
	}
	return true, nil
}

func (s *memStore) bumpCounter(courseID string, delta int64) {
	if c, ok := s.courses[courseID]; ok {
		c.EnrollmentCount += delta
		if c.EnrollmentCount < 0 {
			c.EnrollmentCount = 0
		}
	}
}

// --- CourseRepository ---

func (s *memStore) GetByID(ctx context.Context, courseID string) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[courseID]
	if !ok {
		return nil, models.ErrCourseNotAvailable
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) GetEnrollment(ctx context.Context, learnerID, courseID string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[enrollmentKey(learnerID, courseID)]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// --- ReferralRepository ---

func (s *memStore) GetRegistration(ctx context.Context, learnerID, courseID string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registrations {
		if r.LearnerID == learnerID && r.CourseID == courseID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindApprovedReferrer(ctx context.Context, role models.ReferrerRole, code string) (*models.Referrer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.referrers {
		if r.Role == role && r.Code == code && r.Approved {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) CompleteAndCredit(ctx context.Context, registrationID string, role models.ReferrerRole, referrerID string, amount int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[registrationID]
	if !ok {
		return false, fmt.Errorf("registration %s not found", registrationID)
	}
	if r.Status == models.RegistrationCompleted {
		return false, nil
	}
	r.Status = models.RegistrationCompleted

	if referrerID != "" {
		if ref, ok := s.referrers[referrerID]; ok && ref.Role == role {
			ref.Balance += amount
		}
	}
	return true, nil
}

// --- fixtures ---

func (s *memStore) addCourse(c *models.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
}

func (s *memStore) addRegistration(r *models.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[r.ID] = r
}

func (s *memStore) addReferrer(r *models.Referrer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referrers[r.ID] = r
}

func (s *memStore) course(t *testing.T, id string) *models.Course {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		t.Fatalf("course %s not found", id)
	}
	cp := *c
	return &cp
}

func (s *memStore) enrollmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.enrollments)
}

func (s *memStore) referrer(t *testing.T, id string) *models.Referrer {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.referrers[id]
	if !ok {
		t.Fatalf("referrer %s not found", id)
	}
	cp := *r
	return &cp
}

// fakeProvider scripts the external provider's answers.
type fakeProvider struct {
	mu           sync.Mutex
	initiateResp *provider.InitiateResponse
	initiateErr  error
	statuses     map[string]string // transaction id -> provider status
	statusErr    error
	statusCalls  int
}

func (f *fakeProvider) Initiate(ctx context.Context, req provider.InitiateRequest) (*provider.InitiateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	if f.initiateResp != nil {
		return f.initiateResp, nil
	}
	return &provider.InitiateResponse{Reference: req.ExternalReference}, nil
}

func (f *fakeProvider) GetStatus(ctx context.Context, reference string) (*provider.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	status, ok := f.statuses[reference]
	if !ok {
		status = "PENDING"
	}
	return &provider.StatusResponse{Reference: reference, Status: status, OperatorReference: "op-" + reference}, nil
}

func (f *fakeProvider) setStatus(reference, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = make(map[string]string)
	}
	f.statuses[reference] = status
}

// fakePublisher records published state-change events.
type fakePublisher struct {
	mu     sync.Mutex
	events []models.StateChangedEvent
}

func (f *fakePublisher) PublishStateChanged(ctx context.Context, event models.StateChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
