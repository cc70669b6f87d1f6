package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/rx-safety-engine/internal/domain"
)

// SQLiteStore implements domain.KnowledgeStore on an embedded SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	logger *logrus.Logger
}

// NewSQLiteStore opens the database at dbPath, creating the file and schema
// if they don't exist. An empty database serves no drugs until Seed is called.
func NewSQLiteStore(logger *logrus.Logger, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("SQLite knowledge store opened")
	return newSQLiteStoreWithDB(logger, db, dbPath), nil
}

func newSQLiteStoreWithDB(logger *logrus.Logger, db *sql.DB, dbPath string) *SQLiteStore {
	return &SQLiteStore{db: db, dbPath: dbPath, logger: logger}
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS drugs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		generic_name TEXT,
		therapeutic_class TEXT,
		mechanism TEXT,
		standard_dosage TEXT,
		max_daily_dose TEXT,
		half_life TEXT,
		bioavailability TEXT,
		pregnancy_category TEXT,
		pediatric_dosage TEXT,
		geriatric_considerations TEXT,
		renal_adjustment TEXT,
		hepatic_adjustment TEXT,
		common_side_effects TEXT,
		serious_adverse_effects TEXT,
		monitoring_parameters TEXT,
		cost_tier TEXT DEFAULT 'Tier 2',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS drug_interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		drug1_id INTEGER REFERENCES drugs (id) ON DELETE CASCADE,
		drug2_id INTEGER REFERENCES drugs (id) ON DELETE CASCADE,
		severity TEXT CHECK(severity IN ('High', 'Moderate', 'Low', 'Minimal')),
		mechanism TEXT,
		description TEXT,
		clinical_significance TEXT,
		recommendation TEXT,
		monitoring_required INTEGER DEFAULT 0,
		UNIQUE(drug1_id, drug2_id)
	);

	CREATE TABLE IF NOT EXISTS drug_indications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		drug_id INTEGER REFERENCES drugs (id) ON DELETE CASCADE,
		indication TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS drug_contraindications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		drug_id INTEGER REFERENCES drugs (id) ON DELETE CASCADE,
		contraindication TEXT NOT NULL,
		severity TEXT CHECK(severity IN ('High', 'Moderate', 'Low')),
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_drugs_name ON drugs(name);
	CREATE INDEX IF NOT EXISTS idx_drugs_generic ON drugs(generic_name);
	CREATE INDEX IF NOT EXISTS idx_drugs_class ON drugs(therapeutic_class);
	CREATE INDEX IF NOT EXISTS idx_interactions_drugs ON drug_interactions(drug1_id, drug2_id);
	`

	_, err := db.Exec(schema)
	return err
}

const drugColumns = `name, generic_name, therapeutic_class, mechanism, standard_dosage, cost_tier,
	max_daily_dose, half_life, bioavailability, pregnancy_category, pediatric_dosage,
	geriatric_considerations, renal_adjustment, hepatic_adjustment, common_side_effects,
	serious_adverse_effects, monitoring_parameters`

const summaryColumns = `name, generic_name, therapeutic_class, mechanism, standard_dosage, cost_tier`

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDrug(s scanner) (*domain.DrugRecord, error) {
	var rec domain.DrugRecord
	var generic, class, mechanism, standard, cost sql.NullString
	var maxDose, halfLife, bioavail, pregnancy, pediatric sql.NullString
	var geriatric, renal, hepatic, common, serious, mon sql.NullString
	err := s.Scan(&rec.Name, &generic, &class, &mechanism, &standard, &cost,
		&maxDose, &halfLife, &bioavail, &pregnancy, &pediatric,
		&geriatric, &renal, &hepatic, &common, &serious, &mon)
	if err != nil {
		return nil, err
	}

	rec.GenericName = generic.String
	rec.TherapeuticClass = class.String
	rec.Mechanism = mechanism.String
	rec.StandardDosage = standard.String
	rec.CostTier = cost.String
	rec.MaxDailyDose = nullText(maxDose)
	rec.HalfLife = nullText(halfLife)
	rec.Bioavailability = nullText(bioavail)
	rec.PregnancyCategory = nullText(pregnancy)
	rec.PediatricDosage = nullText(pediatric)
	rec.GeriatricConsiderations = nullText(geriatric)
	rec.RenalAdjustment = nullText(renal)
	rec.HepaticAdjustment = nullText(hepatic)
	rec.CommonSideEffects = nullText(common)
	rec.SeriousAdverseEffects = nullText(serious)
	rec.MonitoringParameters = nullText(mon)
	return &rec, nil
}

func scanSummary(s scanner) (domain.DrugSummary, error) {
	var sum domain.DrugSummary
	var generic, class, mechanism, standard, cost sql.NullString
	if err := s.Scan(&sum.Name, &generic, &class, &mechanism, &standard, &cost); err != nil {
		return domain.DrugSummary{}, err
	}
	sum.GenericName = generic.String
	sum.TherapeuticClass = class.String
	sum.Mechanism = mechanism.String
	sum.StandardDosage = standard.String
	sum.CostTier = cost.String
	return sum, nil
}

func nullText(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return domain.Text(ns.String)
}

func optional(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// Lookup implements domain.KnowledgeStore. A name match is preferred over a
// generic-name match.
func (s *SQLiteStore) Lookup(ctx context.Context, name string) (*domain.DrugRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, `+drugColumns+`
		FROM drugs
		WHERE LOWER(name) = LOWER(?) OR LOWER(generic_name) = LOWER(?)
		ORDER BY CASE WHEN LOWER(name) = LOWER(?) THEN 0 ELSE 1 END, id
		LIMIT 1
	`, name, name, name)

	var id int64
	rec, err := scanDrug(idScanner{row, &id})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("drug %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan drug: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT indication FROM drug_indications WHERE drug_id = ? ORDER BY position, id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query indications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ind string
		if err := rows.Scan(&ind); err != nil {
			return nil, fmt.Errorf("failed to scan indication: %w", err)
		}
		rec.Indications = append(rec.Indications, ind)
	}
	return rec, rows.Err()
}

// idScanner reads a leading id column before the drug columns.
type idScanner struct {
	s  scanner
	id *int64
}

func (is idScanner) Scan(dest ...interface{}) error {
	return is.s.Scan(append([]interface{}{is.id}, dest...)...)
}

// Search implements domain.KnowledgeStore.
func (s *SQLiteStore) Search(ctx context.Context, term string, limit int) ([]domain.DrugSummary, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	term = strings.ToLower(strings.TrimSpace(term))
	pattern := "%" + escapeLike(term) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM drugs
		WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(generic_name) LIKE ? ESCAPE '\'
		ORDER BY
			CASE
				WHEN LOWER(name) = ? THEN 1
				WHEN LOWER(generic_name) = ? THEN 2
				WHEN LOWER(name) LIKE ? ESCAPE '\' THEN 3
				ELSE 4
			END,
			name
		LIMIT ?
	`, pattern, pattern, term, term, escapeLike(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search drugs: %w", err)
	}
	defer rows.Close()

	return collectSummaries(rows)
}

func collectSummaries(rows *sql.Rows) ([]domain.DrugSummary, error) {
	out := []domain.DrugSummary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// InteractionLookup implements domain.KnowledgeStore.
func (s *SQLiteStore) InteractionLookup(ctx context.Context, nameA, nameB string) (*domain.InteractionFinding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT i.severity, i.mechanism, i.description, i.clinical_significance,
			i.recommendation, i.monitoring_required
		FROM drug_interactions i
		JOIN drugs d1 ON i.drug1_id = d1.id
		JOIN drugs d2 ON i.drug2_id = d2.id
		WHERE (LOWER(d1.name) = LOWER(?) AND LOWER(d2.name) = LOWER(?))
		   OR (LOWER(d1.name) = LOWER(?) AND LOWER(d2.name) = LOWER(?))
		   OR (LOWER(d1.generic_name) = LOWER(?) AND LOWER(d2.generic_name) = LOWER(?))
		   OR (LOWER(d1.generic_name) = LOWER(?) AND LOWER(d2.generic_name) = LOWER(?))
		LIMIT 1
	`, nameA, nameB, nameB, nameA, nameA, nameB, nameB, nameA)

	var (
		ir             InteractionRecord
		severity       string
		mechanism      sql.NullString
		description    sql.NullString
		clinical       sql.NullString
		recommendation sql.NullString
		monitoring     bool
	)
	err := row.Scan(&severity, &mechanism, &description, &clinical, &recommendation, &monitoring)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interaction %s/%s: %w", nameA, nameB, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan interaction: %w", err)
	}

	ir.Severity = domain.Severity(severity)
	ir.Mechanism = mechanism.String
	ir.Description = description.String
	ir.ClinicalSignificance = clinical.String
	ir.Recommendation = recommendation.String
	ir.MonitoringRequired = monitoring
	return ir.Finding(nameA, nameB), nil
}

// ContraindicationsFor implements domain.KnowledgeStore.
func (s *SQLiteStore) ContraindicationsFor(ctx context.Context, name string, conditions, allergies []string) ([]domain.Contraindication, error) {
	var out []domain.Contraindication

	wanted := make([]string, 0, len(conditions))
	for c := range lowerSet(conditions) {
		wanted = append(wanted, c)
	}

	if len(wanted) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(wanted)), ",")
		args := []interface{}{name, name}
		for _, c := range wanted {
			args = append(args, c)
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT dc.contraindication, dc.severity, dc.reason
			FROM drug_contraindications dc
			JOIN drugs d ON dc.drug_id = d.id
			WHERE (LOWER(d.name) = LOWER(?) OR LOWER(d.generic_name) = LOWER(?))
			  AND LOWER(dc.contraindication) IN (`+placeholders+`)
			ORDER BY dc.id
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query contraindications: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				ci       domain.Contraindication
				severity string
				reason   sql.NullString
			)
			if err := rows.Scan(&ci.Label, &severity, &reason); err != nil {
				return nil, fmt.Errorf("failed to scan contraindication: %w", err)
			}
			ci.Kind = domain.KindCondition
			ci.Severity = domain.Severity(severity)
			ci.Reason = reason.String
			out = append(out, ci)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return append(out, domain.AllergyContraindications(name, allergies, nil)...), nil
}

// TherapeuticAlternatives implements domain.KnowledgeStore.
func (s *SQLiteStore) TherapeuticAlternatives(ctx context.Context, name, therapeuticClass string) ([]domain.DrugSummary, error) {
	if strings.TrimSpace(therapeuticClass) == "" {
		err := s.db.QueryRowContext(ctx, `
			SELECT therapeutic_class FROM drugs
			WHERE LOWER(name) = LOWER(?) OR LOWER(generic_name) = LOWER(?)
			LIMIT 1
		`, name, name).Scan(&therapeuticClass)
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.DrugSummary{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve therapeutic class: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM drugs
		WHERE LOWER(therapeutic_class) = LOWER(?)
		  AND LOWER(name) != LOWER(?)
		  AND LOWER(COALESCE(generic_name, '')) != LOWER(?)
		ORDER BY cost_tier, name
		LIMIT ?
	`, therapeuticClass, name, name, maxTherapeuticAlternate)
	if err != nil {
		return nil, fmt.Errorf("failed to query alternatives: %w", err)
	}
	defer rows.Close()

	return collectSummaries(rows)
}

// MonitoringRequirements implements domain.MonitoringSource.
func (s *SQLiteStore) MonitoringRequirements(ctx context.Context, names []string) (map[string]domain.MonitoringRequirement, error) {
	out := make(map[string]domain.MonitoringRequirement)
	if len(names) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("LOWER(?),", len(names)), ",")
	args := make([]interface{}, 0, len(names)*2)
	for _, n := range names {
		args = append(args, n)
	}
	args = append(args, args...)

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, monitoring_parameters, serious_adverse_effects
		FROM drugs
		WHERE LOWER(name) IN (`+placeholders+`)
		   OR LOWER(generic_name) IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitoring requirements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name            string
			params, effects sql.NullString
		)
		if err := rows.Scan(&name, &params, &effects); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out[name] = domain.MonitoringRequirement{Parameters: params.String, AdverseEffects: effects.String}
	}
	return out, rows.Err()
}

// Seed replaces the store contents with ds in a single transaction.
func (s *SQLiteStore) Seed(ctx context.Context, ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"drug_contraindications", "drug_indications", "drug_interactions", "drugs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	ids := make(map[string]int64, len(ds.Drugs))
	for _, d := range ds.Drugs {
		cost := d.CostTier
		if cost == "" {
			cost = "Tier 2"
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO drugs (`+drugColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			d.Name, d.GenericName, d.TherapeuticClass, d.Mechanism, d.StandardDosage, cost,
			optional(d.MaxDailyDose), optional(d.HalfLife), optional(d.Bioavailability),
			optional(d.PregnancyCategory), optional(d.PediatricDosage),
			optional(d.GeriatricConsiderations), optional(d.RenalAdjustment),
			optional(d.HepaticAdjustment), optional(d.CommonSideEffects),
			optional(d.SeriousAdverseEffects), optional(d.MonitoringParameters),
		)
		if err != nil {
			return fmt.Errorf("failed to insert drug %s: %w", d.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get insert ID: %w", err)
		}
		ids[strings.ToLower(d.Name)] = id

		for pos, ind := range d.Indications {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO drug_indications (drug_id, indication, position) VALUES (?, ?, ?)",
				id, ind, pos); err != nil {
				return fmt.Errorf("failed to insert indication for %s: %w", d.Name, err)
			}
		}
	}

	for _, ir := range ds.Interactions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO drug_interactions (
				drug1_id, drug2_id, severity, mechanism, description,
				clinical_significance, recommendation, monitoring_required
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			ids[strings.ToLower(ir.DrugA)], ids[strings.ToLower(ir.DrugB)], string(ir.Severity),
			ir.Mechanism, ir.Description, ir.ClinicalSignificance, ir.Recommendation, ir.MonitoringRequired,
		); err != nil {
			return fmt.Errorf("failed to insert interaction %s/%s: %w", ir.DrugA, ir.DrugB, err)
		}
	}

	for _, cr := range ds.Contraindications {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO drug_contraindications (drug_id, contraindication, severity, reason) VALUES (?, ?, ?, ?)",
			ids[strings.ToLower(cr.Drug)], cr.Label, string(cr.Severity), cr.Reason,
		); err != nil {
			return fmt.Errorf("failed to insert contraindication for %s: %w", cr.Drug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"version": ds.Version,
		"drugs":   len(ds.Drugs),
	}).Info("SQLite knowledge store seeded")
	return nil
}

// Count returns the number of drugs in the store.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM drugs").Scan(&count)
	return count, err
}

// Health implements domain.HealthChecker.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
