package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/personbook/internal/model"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolationCode = "23505"

// PostgresPersonRepo はPostgreSQLを使用したPersonリポジトリ。
type PostgresPersonRepo struct {
	db *sql.DB
}

// NewPostgresPersonRepo はPostgresPersonRepoを生成する。
func NewPostgresPersonRepo(db *sql.DB) *PostgresPersonRepo {
	return &PostgresPersonRepo{db: db}
}

// personColumns はSELECT句で使用するカラムリスト。
const personColumns = `id, first_name, last_name, email, birth_date, age, profession, address, phone, photo_url, created_at, updated_at`

// List は全Personをid昇順で返す。
func (r *PostgresPersonRepo) List(ctx context.Context) ([]*model.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM persons ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	persons := []*model.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate persons: %w", err)
	}

	return persons, nil
}

// FindByID は指定IDのPersonを取得する。見つからない場合はnilを返す。
func (r *PostgresPersonRepo) FindByID(ctx context.Context, id int64) (*model.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`,
		id,
	)

	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find person by ID: %w", err)
	}

	return p, nil
}

// Create はPersonを作成する。IDとタイムスタンプはデータベースが採番する。
func (r *PostgresPersonRepo) Create(ctx context.Context, p *model.Person) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO persons (first_name, last_name, email, birth_date, age, profession, address, phone, photo_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		p.FirstName, p.LastName, p.Email,
		birthDateArg(p.BirthDate), p.Age, p.Profession, p.Address, p.Phone, p.PhotoURL,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}

	return nil
}

// Update はPersonの全フィールドを上書き更新する。
// 更新対象行が存在しない場合はエラーを返す（存在確認はサービス層で行う）。
func (r *PostgresPersonRepo) Update(ctx context.Context, p *model.Person) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE persons
		 SET first_name = $1, last_name = $2, email = $3, birth_date = $4,
		     age = $5, profession = $6, address = $7, phone = $8, photo_url = $9,
		     updated_at = now()
		 WHERE id = $10
		 RETURNING updated_at`,
		p.FirstName, p.LastName, p.Email,
		birthDateArg(p.BirthDate), p.Age, p.Profession, p.Address, p.Phone, p.PhotoURL,
		p.ID,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("person not found: %d", p.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}

	return nil
}

// Delete は指定IDのPersonを削除する。
func (r *PostgresPersonRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM persons WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("person not found: %d", id)
	}
	return nil
}

// EmailExists は指定emailを持つPersonが存在するかを返す。
// excludeIDが0以外の場合、そのIDの行は検査対象から除外する。
func (r *PostgresPersonRepo) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM persons WHERE email = $1 AND id <> $2)`,
		email, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// IsUniqueViolation はemail一意インデックス違反によるエラーかどうかを判定する。
// EmailExistsチェックとINSERTの間の競合はこのエラーとして現れる。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPerson は1行をmodel.Personに変換する。
func scanPerson(row rowScanner) (*model.Person, error) {
	p := &model.Person{}
	var (
		birthDate  sql.NullTime
		age        sql.NullString
		profession sql.NullString
		address    sql.NullString
		phone      sql.NullString
		photoURL   sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email,
		&birthDate, &age, &profession, &address, &phone, &photoURL,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if birthDate.Valid {
		d := model.NewDate(birthDate.Time.Year(), birthDate.Time.Month(), birthDate.Time.Day())
		p.BirthDate = &d
	}
	p.Age = nullStringPtr(age)
	p.Profession = nullStringPtr(profession)
	p.Address = nullStringPtr(address)
	p.Phone = nullStringPtr(phone)
	p.PhotoURL = nullStringPtr(photoURL)

	return p, nil
}

// birthDateArg は*model.DateをSQLプレースホルダ引数に変換する。
func birthDateArg(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// compile-time interface check
var _ PersonRepository = (*PostgresPersonRepo)(nil)
