package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}

type fakeAttendanceRepo struct {
	records []*Attendance
	calls   []string
}

func (r *fakeAttendanceRepo) Create(_ context.Context, record *Attendance) (*Attendance, error) {
	r.calls = append(r.calls, "Create")
	clone := *record
	r.records = append(r.records, &clone)
	return &clone, nil
}

func (r *fakeAttendanceRepo) FindByEmployeeBetween(_ context.Context, employeeID string, from, to time.Time) ([]*Attendance, error) {
	r.calls = append(r.calls, "FindByEmployeeBetween")
	return r.filter(func(a *Attendance) bool {
		return a.EmployeeID == employeeID && arrivedWithin(a, from, to)
	}), nil
}

func (r *fakeAttendanceRepo) FindByEmployee(_ context.Context, employeeID string) ([]*Attendance, error) {
	r.calls = append(r.calls, "FindByEmployee")
	return r.filter(func(a *Attendance) bool { return a.EmployeeID == employeeID }), nil
}

func (r *fakeAttendanceRepo) FindBetween(_ context.Context, from, to time.Time) ([]*Attendance, error) {
	r.calls = append(r.calls, "FindBetween")
	return r.filter(func(a *Attendance) bool { return arrivedWithin(a, from, to) }), nil
}

func (r *fakeAttendanceRepo) FindAll(_ context.Context) ([]*Attendance, error) {
	r.calls = append(r.calls, "FindAll")
	return r.filter(func(*Attendance) bool { return true }), nil
}

func (r *fakeAttendanceRepo) filter(keep func(*Attendance) bool) []*Attendance {
	var out []*Attendance
	for _, record := range r.records {
		if keep(record) {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out
}

func arrivedWithin(a *Attendance, from, to time.Time) bool {
	return a.Arrival != nil && !a.Arrival.Before(from) && !a.Arrival.After(to)
}

type fakeEmployees map[string]bool

func (f fakeEmployees) Exists(_ context.Context, id string) (bool, error) {
	return f[id], nil
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func ptrString(s string) *string {
	return &s
}

func seededRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: []*Attendance{
		{ID: "1", EmployeeID: "emp-1", Arrival: ptrTime(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)), Status: StatusPresent},
		{ID: "2", EmployeeID: "emp-1", Arrival: ptrTime(time.Date(2025, 6, 3, 23, 59, 59, 0, time.UTC)), Status: StatusAbsent},
		{ID: "3", EmployeeID: "emp-1", Arrival: ptrTime(time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)), Status: StatusLeave},
		{ID: "4", EmployeeID: "emp-2", Arrival: ptrTime(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)), Status: StatusPresent},
	}}
}

func TestService_Find_DispatchesByQueryShape(t *testing.T) {
	t.Parallel()

	june := &DateRange{
		Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		name     string
		query    Query
		wantCall string
		wantIDs  []string
	}{
		{name: "employee and range", query: Query{EmployeeID: ptrString("emp-1"), Range: june}, wantCall: "FindByEmployeeBetween", wantIDs: []string{"1", "2"}},
		{name: "employee only", query: Query{EmployeeID: ptrString("emp-1")}, wantCall: "FindByEmployee", wantIDs: []string{"1", "2", "3"}},
		{name: "range only", query: Query{Range: june}, wantCall: "FindBetween", wantIDs: []string{"1", "2", "4"}},
		{name: "neither", query: Query{}, wantCall: "FindAll", wantIDs: []string{"1", "2", "3", "4"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := seededRepo()
			svc := NewService(repo, nil, nil, nil, nil)

			records, err := svc.Find(context.Background(), tc.query)
			if err != nil {
				t.Fatalf("Find returned error: %v", err)
			}
			if len(repo.calls) != 1 || repo.calls[0] != tc.wantCall {
				t.Fatalf("expected single %s call, got %v", tc.wantCall, repo.calls)
			}
			if len(records) != len(tc.wantIDs) {
				t.Fatalf("expected %d records, got %d", len(tc.wantIDs), len(records))
			}
			for i, id := range tc.wantIDs {
				if records[i].ID != id {
					t.Fatalf("position %d: expected %s, got %s", i, id, records[i].ID)
				}
			}
		})
	}
}

func TestService_Find_InvalidQuery(t *testing.T) {
	t.Parallel()

	svc := NewService(seededRepo(), nil, nil, nil, nil)

	backwards := &DateRange{
		Start: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if _, err := svc.Find(context.Background(), Query{Range: backwards}); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if _, err := svc.Find(context.Background(), Query{EmployeeID: ptrString(" ")}); !errors.Is(err, ErrInvalidEmployeeID) {
		t.Fatalf("expected ErrInvalidEmployeeID, got %v", err)
	}
}

func TestService_Find_EmptyResultIsNotNil(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeAttendanceRepo{}, nil, nil, nil, nil)

	records, err := svc.Find(context.Background(), Query{EmployeeID: ptrString("emp-9")})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", records)
	}
}

func TestTally(t *testing.T) {
	t.Parallel()

	records := []*Attendance{
		{Status: StatusPresent},
		{Status: StatusPresent},
		{Status: StatusAbsent},
		{Status: StatusLeave},
		{Status: Status("HALF_DAY")},
		nil,
	}

	summary := Tally(records)
	if summary.Present != 2 || summary.Absent != 1 || summary.Leave != 1 || summary.Unrecognized != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if recognized := summary.Present + summary.Absent + summary.Leave; recognized != 4 {
		t.Fatalf("expected 4 recognized records, got %d", recognized)
	}
}

func TestService_Summarize(t *testing.T) {
	t.Parallel()

	svc := NewService(seededRepo(), nil, nil, nil, nil)

	summary, err := svc.Summarize(context.Background(), Query{EmployeeID: ptrString("emp-1")})
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary != (Summary{Present: 1, Absent: 1, Leave: 1}) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestService_MarkAttendance(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{}
	svc := NewService(repo, fakeEmployees{"emp-1": true}, stubClock{now: now}, nil, nil)

	arrival := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	departure := time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC)
	created, err := svc.MarkAttendance(context.Background(), MarkAttendanceInput{
		EmployeeID: "emp-1",
		Arrival:    &arrival,
		Departure:  &departure,
		Status:     "present",
	})
	if err != nil {
		t.Fatalf("MarkAttendance returned error: %v", err)
	}
	if created.ID == "" || created.Status != StatusPresent || !created.CreatedAt.Equal(now) {
		t.Fatalf("unexpected record: %+v", created)
	}

	cases := []struct {
		name string
		in   MarkAttendanceInput
		want error
	}{
		{name: "missing employee", in: MarkAttendanceInput{Status: "PRESENT"}, want: ErrInvalidEmployeeID},
		{name: "missing status", in: MarkAttendanceInput{EmployeeID: "emp-1"}, want: ErrInvalidStatus},
		{name: "unknown status", in: MarkAttendanceInput{EmployeeID: "emp-1", Status: "HOLIDAY"}, want: ErrInvalidStatus},
		{name: "unknown employee", in: MarkAttendanceInput{EmployeeID: "emp-9", Status: "ABSENT"}, want: ErrEmployeeNotFound},
		{name: "departure before arrival", in: MarkAttendanceInput{EmployeeID: "emp-1", Arrival: &departure, Departure: &arrival, Status: "PRESENT"}, want: ErrInvalidTimes},
	}
	for _, tc := range cases {
		if _, err := svc.MarkAttendance(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if len(repo.records) != 1 {
		t.Fatalf("expected only the valid record to be stored, got %d", len(repo.records))
	}
}
