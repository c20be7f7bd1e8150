package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfa/schoolfees-service/internal/domain"
)

const schoolColumns = `id, name, location, registration_fee, created_at, updated_at`

const studentColumns = `id, index_number, name, to_char(dob, 'YYYY-MM-DD'), school_id, location, registration_paid, created_at, updated_at`

func scanSchool(row pgx.Row) (*domain.School, error) {
	var s domain.School
	if err := row.Scan(&s.ID, &s.Name, &s.Location, &s.RegistrationFee, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

func scanStudent(row pgx.Row) (*domain.Student, error) {
	var s domain.Student
	err := row.Scan(
		&s.ID,
		&s.IndexNumber,
		&s.Name,
		&s.DOB,
		&s.SchoolID,
		&s.Location,
		&s.RegistrationPaid,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

func (r *PostgresRepository) CreateSchool(ctx context.Context, input domain.SchoolInput) (*domain.School, error) {
	query := `
		INSERT INTO schools (name, location, registration_fee)
		VALUES ($1, $2, $3::numeric)
		RETURNING ` + schoolColumns
	return scanSchool(r.db.QueryRow(ctx, query, strings.TrimSpace(input.Name), input.Location, input.RegistrationFee))
}

func (r *PostgresRepository) GetSchool(ctx context.Context, id uuid.UUID) (*domain.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1 AND ` + liveOnly
	return scanSchool(r.db.QueryRow(ctx, query, id))
}

// ListSchools returns live schools, optionally filtered by a case-insensitive name fragment.
func (r *PostgresRepository) ListSchools(ctx context.Context, nameFilter string) ([]domain.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE ` + liveOnly + ` AND ($1 = '' OR name ILIKE $2 ESCAPE '\') ORDER BY name`
	rows, err := r.db.Query(ctx, query, strings.TrimSpace(nameFilter), containsPattern(nameFilter))
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanSchool)
}

func (r *PostgresRepository) UpdateSchool(ctx context.Context, id uuid.UUID, update domain.SchoolUpdate) (*domain.School, error) {
	var b updateBuilder
	if update.Name != nil {
		b.set("name", strings.TrimSpace(*update.Name))
	}
	if update.Location != nil {
		b.set("location", *update.Location)
	}
	if update.RegistrationFee != nil {
		b.setCast("registration_fee", *update.RegistrationFee, "::numeric")
	}
	if b.empty() {
		return r.GetSchool(ctx, id)
	}
	query, args := b.build("schools", "id", id, schoolColumns)
	return scanSchool(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) DeleteSchool(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.db, "schools", "id", id)
}

func (r *PostgresRepository) CreateStudent(ctx context.Context, input domain.StudentInput) (*domain.Student, error) {
	query := `
		INSERT INTO students (index_number, name, dob, school_id, location, registration_paid)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		RETURNING ` + studentColumns
	return scanStudent(r.db.QueryRow(ctx, query,
		strings.TrimSpace(input.IndexNumber), input.Name, input.DOB, input.SchoolID, input.Location, input.RegistrationPaid,
	))
}

func (r *PostgresRepository) GetStudent(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1 AND ` + liveOnly
	return scanStudent(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) GetStudentByIndexNumber(ctx context.Context, indexNumber string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE index_number = $1 AND ` + liveOnly
	return scanStudent(r.db.QueryRow(ctx, query, strings.TrimSpace(indexNumber)))
}

// ListStudents returns live students, optionally restricted to one school.
func (r *PostgresRepository) ListStudents(ctx context.Context, schoolID *uuid.UUID) ([]domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + liveOnly + ` AND ($1::uuid IS NULL OR school_id = $1) ORDER BY name`
	rows, err := r.db.Query(ctx, query, schoolID)
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanStudent)
}

func (r *PostgresRepository) UpdateStudent(ctx context.Context, id uuid.UUID, update domain.StudentUpdate) (*domain.Student, error) {
	var b updateBuilder
	if update.IndexNumber != nil {
		b.set("index_number", strings.TrimSpace(*update.IndexNumber))
	}
	if update.Name != nil {
		b.set("name", *update.Name)
	}
	if update.DOB != nil {
		b.setCast("dob", *update.DOB, "::date")
	}
	if update.SchoolID != nil {
		b.set("school_id", *update.SchoolID)
	}
	if update.Location != nil {
		b.set("location", *update.Location)
	}
	if update.RegistrationPaid != nil {
		b.set("registration_paid", *update.RegistrationPaid)
	}
	if b.empty() {
		return r.GetStudent(ctx, id)
	}
	query, args := b.build("students", "id", id, studentColumns)
	return scanStudent(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.db, "students", "id", id)
}
