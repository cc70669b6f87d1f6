package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
)

const (
	defaultSearchLimit   = 10
	maxAlternativeResult = 10
)

const drugColumns = `name, COALESCE(generic_name, ''), COALESCE(therapeutic_class, ''),
	COALESCE(mechanism, ''), standard_dosage, cost_tier,
	max_daily_dose, half_life, bioavailability, pregnancy_category, pediatric_dosage,
	geriatric_considerations, renal_adjustment, hepatic_adjustment, common_side_effects,
	serious_adverse_effects, monitoring_parameters`

const summaryColumns = `name, COALESCE(generic_name, ''), COALESCE(therapeutic_class, ''),
	COALESCE(mechanism, ''), standard_dosage, cost_tier`

// PostgresStore implements domain.KnowledgeStore on the Postgres schema
// created by the migrations.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a Postgres-backed knowledge store
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: logger,
	}
}

func scanDrug(row pgx.Row) (int64, *domain.DrugRecord, error) {
	var (
		id  int64
		rec domain.DrugRecord
		opt [11]*string
	)
	err := row.Scan(&id, &rec.Name, &rec.GenericName, &rec.TherapeuticClass, &rec.Mechanism,
		&rec.StandardDosage, &rec.CostTier,
		&opt[0], &opt[1], &opt[2], &opt[3], &opt[4], &opt[5], &opt[6], &opt[7], &opt[8], &opt[9], &opt[10])
	if err != nil {
		return 0, nil, err
	}

	rec.MaxDailyDose = text(opt[0])
	rec.HalfLife = text(opt[1])
	rec.Bioavailability = text(opt[2])
	rec.PregnancyCategory = text(opt[3])
	rec.PediatricDosage = text(opt[4])
	rec.GeriatricConsiderations = text(opt[5])
	rec.RenalAdjustment = text(opt[6])
	rec.HepaticAdjustment = text(opt[7])
	rec.CommonSideEffects = text(opt[8])
	rec.SeriousAdverseEffects = text(opt[9])
	rec.MonitoringParameters = text(opt[10])
	return id, &rec, nil
}

func text(p *string) *string {
	if p == nil {
		return nil
	}
	return domain.Text(*p)
}

// Lookup implements domain.KnowledgeStore. A name match is preferred over a
// generic-name match.
func (s *PostgresStore) Lookup(ctx context.Context, name string) (*domain.DrugRecord, error) {
	query := `
		SELECT id, ` + drugColumns + `
		FROM drugs
		WHERE LOWER(name) = LOWER($1) OR LOWER(generic_name) = LOWER($1)
		ORDER BY CASE WHEN LOWER(name) = LOWER($1) THEN 0 ELSE 1 END, id
		LIMIT 1`

	id, rec, err := scanDrug(s.db.QueryRow(ctx, query, strings.TrimSpace(name)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("drug %q: %w", name, domain.ErrNotFound)
		}
		s.log.WithFields(logrus.Fields{
			"drug":  name,
			"error": err,
		}).Error("Failed to look up drug")
		return nil, fmt.Errorf("looking up drug: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT indication FROM drug_indications WHERE drug_id = $1 ORDER BY position, id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying indications: %w", err)
	}
	indications, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning indications: %w", err)
	}
	if len(indications) > 0 {
		rec.Indications = indications
	}

	return rec, nil
}

// Search implements domain.KnowledgeStore.
func (s *PostgresStore) Search(ctx context.Context, term string, limit int) ([]domain.DrugSummary, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	term = strings.ToLower(strings.TrimSpace(term))
	escaped := escapeLike(term)

	query := `
		SELECT ` + summaryColumns + `
		FROM drugs
		WHERE LOWER(name) LIKE $1 OR LOWER(generic_name) LIKE $1
		ORDER BY
			CASE
				WHEN LOWER(name) = $2 THEN 1
				WHEN LOWER(generic_name) = $2 THEN 2
				WHEN LOWER(name) LIKE $3 THEN 3
				ELSE 4
			END,
			name COLLATE "C"
		LIMIT $4`

	rows, err := s.db.Query(ctx, query, "%"+escaped+"%", term, escaped+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching drugs: %w", err)
	}
	return collectSummaries(rows)
}

func collectSummaries(rows pgx.Rows) ([]domain.DrugSummary, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DrugSummary, error) {
		var s domain.DrugSummary
		err := row.Scan(&s.Name, &s.GenericName, &s.TherapeuticClass, &s.Mechanism, &s.StandardDosage, &s.CostTier)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning drug summaries: %w", err)
	}
	if out == nil {
		out = []domain.DrugSummary{}
	}
	return out, nil
}

// escapeLike escapes LIKE wildcards; backslash is the Postgres default escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// InteractionLookup implements domain.KnowledgeStore.
func (s *PostgresStore) InteractionLookup(ctx context.Context, nameA, nameB string) (*domain.InteractionFinding, error) {
	query := `
		SELECT i.severity, COALESCE(i.mechanism, ''), COALESCE(i.description, ''),
			COALESCE(i.clinical_significance, ''), COALESCE(i.recommendation, ''), i.monitoring_required
		FROM drug_interactions i
		JOIN drugs d1 ON i.drug1_id = d1.id
		JOIN drugs d2 ON i.drug2_id = d2.id
		WHERE (LOWER(d1.name) = LOWER($1) AND LOWER(d2.name) = LOWER($2))
		   OR (LOWER(d1.name) = LOWER($2) AND LOWER(d2.name) = LOWER($1))
		   OR (LOWER(d1.generic_name) = LOWER($1) AND LOWER(d2.generic_name) = LOWER($2))
		   OR (LOWER(d1.generic_name) = LOWER($2) AND LOWER(d2.generic_name) = LOWER($1))
		LIMIT 1`

	f := domain.InteractionFinding{DrugA: nameA, DrugB: nameB, Source: domain.SourceStore}
	var severity string
	err := s.db.QueryRow(ctx, query, nameA, nameB).Scan(&severity, &f.Mechanism, &f.Description,
		&f.ClinicalSignificance, &f.Recommendation, &f.MonitoringRequired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("interaction %s/%s: %w", nameA, nameB, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("looking up interaction: %w", err)
	}
	f.Severity = domain.Severity(severity)

	return &f, nil
}

// ContraindicationsFor implements domain.KnowledgeStore.
func (s *PostgresStore) ContraindicationsFor(ctx context.Context, name string, conditions, allergies []string) ([]domain.Contraindication, error) {
	var out []domain.Contraindication

	wanted := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if c = strings.TrimSpace(c); c != "" {
			wanted = append(wanted, strings.ToLower(c))
		}
	}

	if len(wanted) > 0 {
		query := `
			SELECT dc.contraindication, dc.severity, COALESCE(dc.reason, '')
			FROM drug_contraindications dc
			JOIN drugs d ON dc.drug_id = d.id
			WHERE (LOWER(d.name) = LOWER($1) OR LOWER(d.generic_name) = LOWER($1))
			  AND LOWER(dc.contraindication) = ANY($2)
			ORDER BY dc.id`

		rows, err := s.db.Query(ctx, query, name, wanted)
		if err != nil {
			return nil, fmt.Errorf("querying contraindications: %w", err)
		}
		found, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Contraindication, error) {
			ci := domain.Contraindication{Kind: domain.KindCondition}
			var severity string
			err := row.Scan(&ci.Label, &severity, &ci.Reason)
			ci.Severity = domain.Severity(severity)
			return ci, err
		})
		if err != nil {
			return nil, fmt.Errorf("scanning contraindications: %w", err)
		}
		out = append(out, found...)
	}

	return append(out, domain.AllergyContraindications(name, allergies, nil)...), nil
}

// TherapeuticAlternatives implements domain.KnowledgeStore.
func (s *PostgresStore) TherapeuticAlternatives(ctx context.Context, name, therapeuticClass string) ([]domain.DrugSummary, error) {
	if strings.TrimSpace(therapeuticClass) == "" {
		err := s.db.QueryRow(ctx, `
			SELECT COALESCE(therapeutic_class, '') FROM drugs
			WHERE LOWER(name) = LOWER($1) OR LOWER(generic_name) = LOWER($1)
			LIMIT 1`, name).Scan(&therapeuticClass)
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.DrugSummary{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolving therapeutic class: %w", err)
		}
	}

	query := `
		SELECT ` + summaryColumns + `
		FROM drugs
		WHERE LOWER(therapeutic_class) = LOWER($1)
		  AND LOWER(name) <> LOWER($2)
		  AND LOWER(COALESCE(generic_name, '')) <> LOWER($2)
		ORDER BY cost_tier COLLATE "C", name COLLATE "C"
		LIMIT $3`

	rows, err := s.db.Query(ctx, query, therapeuticClass, name, maxAlternativeResult)
	if err != nil {
		return nil, fmt.Errorf("querying alternatives: %w", err)
	}
	return collectSummaries(rows)
}

// MonitoringRequirements implements domain.MonitoringSource.
func (s *PostgresStore) MonitoringRequirements(ctx context.Context, names []string) (map[string]domain.MonitoringRequirement, error) {
	out := make(map[string]domain.MonitoringRequirement)
	if len(names) == 0 {
		return out, nil
	}

	lowered := make([]string, 0, len(names))
	for _, n := range names {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(n)))
	}

	rows, err := s.db.Query(ctx, `
		SELECT name, COALESCE(monitoring_parameters, ''), COALESCE(serious_adverse_effects, '')
		FROM drugs
		WHERE LOWER(name) = ANY($1) OR LOWER(generic_name) = ANY($1)`, lowered)
	if err != nil {
		return nil, fmt.Errorf("querying monitoring requirements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var req domain.MonitoringRequirement
		if err := rows.Scan(&name, &req.Parameters, &req.AdverseEffects); err != nil {
			return nil, fmt.Errorf("scanning monitoring requirements: %w", err)
		}
		out[name] = req
	}
	return out, rows.Err()
}

// Count returns the number of drugs in the knowledge base.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM drugs").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting drugs: %w", err)
	}
	return count, nil
}

// Health implements domain.HealthChecker.
func (s *PostgresStore) Health(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
