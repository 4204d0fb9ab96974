package store

import (
	"context"
	"fmt"
	"strings"
)

type table struct {
	name    string
	columns string
	indexes []index
}

type index struct {
	name    string
	columns string
}

// The column lists are written in the subset of SQL that MySQL, PostgreSQL
// and SQLite all accept; {{ts}} is replaced by the dialect timestamp type.
var tables = []table{
	{
		name: "users",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at {{ts}} NOT NULL`,
		indexes: []index{{"idx_users_role", "role"}},
	},
	{
		name: "books",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			author VARCHAR(255) NOT NULL,
			isbn VARCHAR(32),
			category VARCHAR(100),
			cover_url VARCHAR(512),
			total_copies INT NOT NULL DEFAULT 0 CHECK (total_copies >= 0),
			borrowed_count INT NOT NULL DEFAULT 0 CHECK (borrowed_count >= 0),
			location_code VARCHAR(64),
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL`,
		indexes: []index{
			{"idx_books_title", "title"},
			{"idx_books_author", "author"},
			{"idx_books_isbn", "isbn"},
			{"idx_books_category", "category"},
		},
	},
	{
		// No foreign keys: loan history outlives deleted users and books.
		name: "borrow_transactions",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			book_id VARCHAR(36) NOT NULL,
			status VARCHAR(20) NOT NULL,
			borrowed_at {{ts}} NOT NULL,
			due_at {{ts}} NOT NULL,
			returned_at {{ts}} NULL,
			borrow_photo_url VARCHAR(512),
			return_photo_url VARCHAR(512),
			notes TEXT,
			version INT NOT NULL DEFAULT 1`,
		indexes: []index{
			{"idx_borrow_user", "user_id"},
			{"idx_borrow_book", "book_id"},
			{"idx_borrow_status", "status"},
		},
	},
	{
		name: "borrow_extensions",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			transaction_id VARCHAR(36) NOT NULL,
			extended_at {{ts}} NOT NULL,
			new_due_at {{ts}} NOT NULL,
			reason TEXT,
			FOREIGN KEY (transaction_id) REFERENCES borrow_transactions(id) ON DELETE CASCADE`,
		indexes: []index{{"idx_extensions_tx", "transaction_id"}},
	},
	{
		name: "orders",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			requested_by VARCHAR(36) NOT NULL,
			title VARCHAR(255) NOT NULL,
			author VARCHAR(255),
			isbn VARCHAR(32),
			status VARCHAR(20) NOT NULL,
			notes TEXT,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL`,
		indexes: []index{
			{"idx_orders_requested_by", "requested_by"},
			{"idx_orders_status", "status"},
		},
	},
	{
		name: "reviews",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			book_id VARCHAR(36) NOT NULL,
			rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
			title VARCHAR(100) NOT NULL,
			content TEXT NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			is_edited BOOLEAN NOT NULL DEFAULT FALSE,
			created_at {{ts}} NOT NULL,
			updated_at {{ts}} NOT NULL,
			UNIQUE (user_id, book_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE`,
		indexes: []index{
			{"idx_reviews_book", "book_id"},
			{"idx_reviews_rating", "rating"},
		},
	},
	{
		name: "review_helpful",
		columns: `
			review_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			PRIMARY KEY (review_id, user_id),
			FOREIGN KEY (review_id) REFERENCES reviews(id) ON DELETE CASCADE`,
	},
	{
		name: "communities",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description VARCHAR(500) NOT NULL,
			category VARCHAR(100) NOT NULL,
			created_by VARCHAR(36) NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			max_members INT NOT NULL DEFAULT 100,
			rules TEXT,
			tags TEXT,
			created_at {{ts}} NOT NULL`,
		indexes: []index{
			{"idx_communities_name", "name"},
			{"idx_communities_category", "category"},
		},
	},
	{
		name: "community_members",
		columns: `
			community_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			is_moderator BOOLEAN NOT NULL DEFAULT FALSE,
			joined_at {{ts}} NOT NULL,
			PRIMARY KEY (community_id, user_id),
			FOREIGN KEY (community_id) REFERENCES communities(id) ON DELETE CASCADE`,
		indexes: []index{{"idx_members_user", "user_id"}},
	},
	{
		name: "messages",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			community_id VARCHAR(36) NOT NULL,
			sender_id VARCHAR(36) NOT NULL,
			content VARCHAR(1000) NOT NULL,
			message_type VARCHAR(20) NOT NULL,
			attachments TEXT,
			is_edited BOOLEAN NOT NULL DEFAULT FALSE,
			created_at {{ts}} NOT NULL,
			FOREIGN KEY (community_id) REFERENCES communities(id) ON DELETE CASCADE`,
		indexes: []index{{"idx_messages_community_created", "community_id, created_at"}},
	},
	{
		name: "message_replies",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			message_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			content VARCHAR(500) NOT NULL,
			created_at {{ts}} NOT NULL,
			FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE`,
		indexes: []index{{"idx_replies_message", "message_id"}},
	},
	{
		name: "message_reactions",
		columns: `
			message_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			emoji VARCHAR(32) NOT NULL,
			PRIMARY KEY (message_id, user_id),
			FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE`,
	},
	{
		name: "notifications",
		columns: `
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at {{ts}} NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`,
		indexes: []index{{"idx_notifications_user", "user_id"}},
	},
}

// InitSchema creates every table and index that does not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, query := range schemaStatements(s.dialect) {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %v, error: %w", query, err)
		}
	}
	return nil
}

func schemaStatements(dialect string) []string {
	ts := "DATETIME"
	switch dialect {
	case dialectMySQL:
		ts = "DATETIME(6)"
	case dialectPostgres:
		ts = "TIMESTAMPTZ"
	}

	var stmts []string
	for _, t := range tables {
		cols := strings.ReplaceAll(t.columns, "{{ts}}", ts)

		// MySQL has no CREATE INDEX IF NOT EXISTS, so its indexes are
		// declared inline with the table.
		if dialect == dialectMySQL {
			for _, idx := range t.indexes {
				cols += fmt.Sprintf(",\n\t\t\tINDEX %s (%s)", idx.name, idx.columns)
			}
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n\t\t)", t.name, cols))

		if dialect != dialectMySQL {
			for _, idx := range t.indexes {
				stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, t.name, idx.columns))
			}
		}
	}
	return stmts
}
