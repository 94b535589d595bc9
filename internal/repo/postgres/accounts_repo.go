package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAccountsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AccountsRepo {
	return &AccountsRepo{
		pool: pool,
		prom: prom,
	}
}

// Students and teachers live in separate tables, so the email namespace is per role.
func table(role account.Role) (string, error) {
	switch role {
	case account.RoleStudent:
		return "students", nil
	case account.RoleTeacher:
		return "teachers", nil
	}
	return "", account.ErrInvalidRole
}

func (repo *AccountsRepo) FindByEmail(ctx context.Context, role account.Role, email string) (account.Account, error) {
	tbl, err := table(role)
	if err != nil {
		return account.Account{}, err
	}

	a := account.Account{Role: role}

	err = repo.prom.ObserveDB(tbl+".find_by_email", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, created_at FROM `+tbl+` WHERE email = $1`,
			email,
		).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return a, nil
}

func (repo *AccountsRepo) Create(ctx context.Context, a account.Account) (account.Account, error) {
	tbl, err := table(a.Role)
	if err != nil {
		return account.Account{}, err
	}

	err = repo.prom.ObserveDB(tbl+".create", func() error {
		_, e := repo.pool.Exec(ctx,
			`INSERT INTO `+tbl+` (id, name, email, password_hash, created_at)
			VALUES ($1,$2,$3,$4,$5)`,
			a.ID, a.Name, a.Email, a.PasswordHash, a.CreatedAt,
		)
		return e
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return account.Account{}, account.ErrEmailTaken
		}
		return account.Account{}, err
	}

	if a.Role == account.RoleTeacher && a.RatedBy == nil {
		a.RatedBy = []string{}
	}
	return a, nil
}

func (repo *AccountsRepo) GetStudent(ctx context.Context, id string) (account.Account, error) {
	a := account.Account{Role: account.RoleStudent}

	err := repo.prom.ObserveDB("students.get_by_id", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, created_at FROM students WHERE id = $1`,
			id,
		).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return a, nil
}

func (repo *AccountsRepo) GetTeacher(ctx context.Context, id string) (account.Account, error) {
	a := account.Account{Role: account.RoleTeacher}

	err := repo.prom.ObserveDB("teachers.get_by_id", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT id, name, email, password_hash, rated_by::text[], created_at FROM teachers WHERE id = $1`,
			id,
		).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.RatedBy, &a.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return a, nil
}

func (repo *AccountsRepo) ListStudents(ctx context.Context) (out []account.Account, err error) {
	var rows pgx.Rows

	err = repo.prom.ObserveDB("students.list", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, `
			SELECT id, name, email, created_at
			FROM students
			ORDER BY created_at ASC, id ASC
		`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]account.Account, 0)
	for rows.Next() {
		a := account.Account{Role: account.RoleStudent}
		if scanErr := rows.Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (repo *AccountsRepo) ListTeachers(ctx context.Context) (out []account.Account, err error) {
	var rows pgx.Rows

	err = repo.prom.ObserveDB("teachers.list", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, `
			SELECT id, name, email, rated_by::text[], created_at
			FROM teachers
			ORDER BY created_at ASC, id ASC
		`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]account.Account, 0)
	for rows.Next() {
		a := account.Account{Role: account.RoleTeacher}
		if scanErr := rows.Scan(&a.ID, &a.Name, &a.Email, &a.RatedBy, &a.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
