package postgres

// Schema statements, applied in order by Migrate.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS opportunities (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		city TEXT,
		remote BOOLEAN NOT NULL DEFAULT false,
		deadline TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		opportunity_id TEXT NOT NULL REFERENCES opportunities(id),
		title TEXT NOT NULL,
		budget DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'open',
		capacity INTEGER NOT NULL DEFAULT 1,
		filled_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		opportunity_id TEXT NOT NULL REFERENCES opportunities(id),
		role_id TEXT NOT NULL,
		role_title TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		cover_message TEXT NOT NULL DEFAULT '',
		proposed_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		available_from TIMESTAMP WITH TIME ZONE,
		available_to TIMESTAMP WITH TIME ZONE,
		status TEXT NOT NULL,
		submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
		response_message TEXT,
		responded_at TIMESTAMP WITH TIME ZONE
	)`,
	// at most one pending or accepted application per (opportunity, role, creator)
	`CREATE UNIQUE INDEX IF NOT EXISTS applications_active_natural_key
		ON applications (opportunity_id, role_id, creator_id)
		WHERE status IN ('pending', 'accepted')`,
	`CREATE TABLE IF NOT EXISTS creators (
		id TEXT PRIMARY KEY,
		tags TEXT[] NOT NULL DEFAULT '{}',
		city TEXT NOT NULL DEFAULT '',
		radius_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS saved_opportunities (
		creator_id TEXT NOT NULL,
		opportunity_id TEXT NOT NULL REFERENCES opportunities(id),
		saved_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (creator_id, opportunity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		user_id TEXT PRIMARY KEY,
		tier TEXT NOT NULL DEFAULT 'priority',
		active_until TIMESTAMP WITH TIME ZONE
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		action_link TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		read_at TIMESTAMP WITH TIME ZONE
	)`,
	// one row per application holding a role slot
	`CREATE TABLE IF NOT EXISTS role_slot_claims (
		application_id TEXT PRIMARY KEY REFERENCES applications(id),
		role_id TEXT NOT NULL REFERENCES roles(id),
		claimed_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
}

const (
	// SelectOpportunitiesQuery lists every opportunity without its roles
	SelectOpportunitiesQuery = `
		SELECT id, owner_id, title, description, city, remote, deadline, created_at, lat, lng
		FROM opportunities
		ORDER BY created_at DESC, id
	`

	// SelectOpportunityQuery loads a single opportunity
	SelectOpportunityQuery = `
		SELECT id, owner_id, title, description, city, remote, deadline, created_at, lat, lng
		FROM opportunities
		WHERE id = $1
	`

	// SelectRolesQuery lists roles of the given opportunities with their applicant counts
	SelectRolesQuery = `
		SELECT r.id, r.opportunity_id, r.title, r.budget, r.status, r.capacity, r.filled_count,
			(SELECT COUNT(*) FROM applications a WHERE a.role_id = r.id) AS applicant_count
		FROM roles r
		WHERE r.opportunity_id = ANY($1)
		ORDER BY r.opportunity_id, r.id
	`

	InsertOpportunityQuery = `
		INSERT INTO opportunities (id, owner_id, title, description, city, remote, deadline, created_at, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	InsertRoleQuery = `
		INSERT INTO roles (id, opportunity_id, title, budget, status, capacity, filled_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// ClaimRoleSlotQuery takes one slot only while the role is below capacity
	ClaimRoleSlotQuery = `
		UPDATE roles
		SET filled_count = filled_count + 1,
			status = CASE WHEN filled_count + 1 >= GREATEST(capacity, 1) THEN 'filled' ELSE status END
		WHERE id = $1 AND opportunity_id = $2 AND filled_count < GREATEST(capacity, 1)
		RETURNING id, opportunity_id, title, budget, status, capacity, filled_count
	`

	// InsertSlotClaimQuery records the claimant; a second claim by the same
	// application inserts nothing
	InsertSlotClaimQuery = `
		INSERT INTO role_slot_claims (application_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (application_id) DO NOTHING
	`

	DeleteSlotClaimQuery = `
		DELETE FROM role_slot_claims
		WHERE application_id = $1 AND role_id = $2
	`

	ReleaseRoleSlotQuery = `
		UPDATE roles
		SET filled_count = GREATEST(filled_count - 1, 0),
			status = CASE WHEN status = 'filled' AND GREATEST(filled_count - 1, 0) < GREATEST(capacity, 1)
				THEN 'open' ELSE status END
		WHERE id = $1 AND opportunity_id = $2
	`

	RoleExistsQuery = `
		SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1 AND opportunity_id = $2)
	`

	applicationColumns = `id, opportunity_id, role_id, role_title, creator_id, cover_message, proposed_rate,
		available_from, available_to, status, submitted_at, response_message, responded_at`

	// SelectApplicationsQuery is extended with filter conditions by ListApplications
	SelectApplicationsQuery = `SELECT ` + applicationColumns + ` FROM applications WHERE 1 = 1`

	SelectApplicationQuery = `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	InsertApplicationQuery = `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	// UpdateApplicationStatusQuery only applies while the stored status still equals $5
	UpdateApplicationStatusQuery = `
		UPDATE applications
		SET status = $1,
			response_message = COALESCE($2, response_message),
			responded_at = COALESCE($3, responded_at)
		WHERE id = $4 AND status = $5
	`

	SelectApplicationStatusQuery = `SELECT status FROM applications WHERE id = $1`

	SelectCreatorQuery = `
		SELECT id, tags, city, radius_km, lat, lng
		FROM creators
		WHERE id = $1
	`

	UpsertCreatorQuery = `
		INSERT INTO creators (id, tags, city, radius_km, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET tags = EXCLUDED.tags, city = EXCLUDED.city, radius_km = EXCLUDED.radius_km,
			lat = EXCLUDED.lat, lng = EXCLUDED.lng
	`

	SelectSavedQuery = `SELECT opportunity_id FROM saved_opportunities WHERE creator_id = $1`

	InsertSavedQuery = `
		INSERT INTO saved_opportunities (creator_id, opportunity_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	DeleteSavedQuery = `DELETE FROM saved_opportunities WHERE creator_id = $1 AND opportunity_id = $2`

	// IsPriorityMemberQuery treats a subscription without an end date as active
	IsPriorityMemberQuery = `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND (active_until IS NULL OR active_until > CURRENT_TIMESTAMP)
		)
	`

	InsertNotificationQuery = `
		INSERT INTO notifications (id, user_id, type, title, message, action_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	SelectNotificationsQuery = `
		SELECT id, user_id, type, title, message, action_link, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	InsertUserQuery = `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, LOWER($2), $3, $4, $5)
	`

	SelectUserByEmailQuery = `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = LOWER($1)
	`

	MarkNotificationsReadQuery = `
		UPDATE notifications
		SET read_at = $2
		WHERE user_id = $1 AND read_at IS NULL
	`
)
