package database

const schema = `
CREATE TABLE IF NOT EXISTS emails (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    external_message_id TEXT NOT NULL UNIQUE,
    subject TEXT NOT NULL DEFAULT '',
    sender TEXT NOT NULL DEFAULT '',
    occurred_at DATETIME,
    body TEXT,
    privacy_check_passed BOOLEAN,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attachments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
    filename TEXT NOT NULL,
    mime_type TEXT NOT NULL DEFAULT '',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    blob_location TEXT NOT NULL DEFAULT '',
    item_id TEXT REFERENCES items(id),
    UNIQUE(email_id, filename)
);

CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    source_email_id INTEGER NOT NULL REFERENCES emails(id),
    content TEXT NOT NULL,
    date_start TEXT,
    date_end TEXT,
    external_urls TEXT NOT NULL DEFAULT '[]',
    is_current BOOLEAN NOT NULL DEFAULT true,
    superseded_by TEXT REFERENCES items(id),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_items (
    user_id TEXT NOT NULL,
    item_id TEXT NOT NULL REFERENCES items(id),
    status TEXT NOT NULL,
    remind_at DATETIME,
    UNIQUE(user_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_emails_external ON emails(external_message_id);
CREATE INDEX IF NOT EXISTS idx_attachments_email ON attachments(email_id);
CREATE INDEX IF NOT EXISTS idx_items_current ON items(is_current);
CREATE INDEX IF NOT EXISTS idx_items_email ON items(source_email_id);
CREATE INDEX IF NOT EXISTS idx_user_items_item ON user_items(item_id);
`
