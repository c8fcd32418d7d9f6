package store

// Schema contains SQL schema definitions for the header archive
const Schema = `
-- Mailboxes as last listed by the server
CREATE TABLE IF NOT EXISTS mailboxes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    selectable INTEGER NOT NULL DEFAULT 1,
    has_children INTEGER NOT NULL DEFAULT 1,
    last_synced DATETIME
);

-- Headers keyed by sequence number, which is only valid for the session
-- that recorded it
CREATE TABLE IF NOT EXISTS headers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mailbox_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    subject TEXT NOT NULL,
    sender_name TEXT NOT NULL DEFAULT '',
    sender_email TEXT NOT NULL,
    recipients TEXT NOT NULL DEFAULT '',
    seen INTEGER NOT NULL DEFAULT 0,
    recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (mailbox_id) REFERENCES mailboxes(id) ON DELETE CASCADE,
    UNIQUE(mailbox_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_headers_mailbox_id ON headers(mailbox_id);
CREATE INDEX IF NOT EXISTS idx_headers_sender_email ON headers(sender_email);

-- Full-text search index
CREATE VIRTUAL TABLE IF NOT EXISTS headers_fts USING fts5(
    subject,
    sender_email,
    sender_name,
    recipients,
    content='headers',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS headers_fts_insert AFTER INSERT ON headers BEGIN
    INSERT INTO headers_fts(rowid, subject, sender_email, sender_name, recipients)
    VALUES (new.id, new.subject, new.sender_email, new.sender_name, new.recipients);
END;

CREATE TRIGGER IF NOT EXISTS headers_fts_update AFTER UPDATE ON headers BEGIN
    INSERT INTO headers_fts(headers_fts, rowid, subject, sender_email, sender_name, recipients)
    VALUES ('delete', old.id, old.subject, old.sender_email, old.sender_name, old.recipients);
    INSERT INTO headers_fts(rowid, subject, sender_email, sender_name, recipients)
    VALUES (new.id, new.subject, new.sender_email, new.sender_name, new.recipients);
END;

CREATE TRIGGER IF NOT EXISTS headers_fts_delete AFTER DELETE ON headers BEGIN
    INSERT INTO headers_fts(headers_fts, rowid, subject, sender_email, sender_name, recipients)
    VALUES ('delete', old.id, old.subject, old.sender_email, old.sender_name, old.recipients);
END;
`
