package sqlite

import (
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

func dbInitSchema(d *sqlx.DB) error {
	schema := []string{
		// This is needed to improve concurrent reads and writes.
		`PRAGMA journal_mode = WAL;`,
		// Without this foreign key constraints won't be enforced and cascade deletes won't happen.
		`PRAGMA foreign_keys = ON;`,

		`CREATE TABLE IF NOT EXISTS users (
id TEXT NOT NULL PRIMARY KEY,
email TEXT NOT NULL,
password TEXT NOT NULL,
created DATETIME,
lastlogin DATETIME,
lastused DATETIME);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (email);`,

		`CREATE TABLE IF NOT EXISTS accesstokens (
userid TEXT NOT NULL,
token TEXT NOT NULL,
devicename TEXT,
remoteaddress TEXT,
created DATETIME,
lastused DATETIME);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS accesstokens_idx ON accesstokens (userid, token);`,

		`CREATE TABLE IF NOT EXISTS password_resets (
token TEXT NOT NULL PRIMARY KEY,
userid TEXT NOT NULL,
created DATETIME NOT NULL,
expires DATETIME NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS user_library (
id TEXT NOT NULL PRIMARY KEY,
userid TEXT NOT NULL,
videoid TEXT NOT NULL,
title TEXT NOT NULL,
artist TEXT NOT NULL,
thumbnail TEXT,
duration TEXT,
added DATETIME NOT NULL);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS user_library_idx ON user_library (userid, videoid);`,

		`CREATE TABLE IF NOT EXISTS listening_history (
id TEXT NOT NULL PRIMARY KEY,
userid TEXT NOT NULL,
videoid TEXT NOT NULL,
title TEXT NOT NULL,
artist TEXT NOT NULL,
thumbnail TEXT,
duration TEXT,
playedat DATETIME NOT NULL);`,

		`CREATE INDEX IF NOT EXISTS listening_history_idx ON listening_history (userid, playedat);`,

		`CREATE TABLE IF NOT EXISTS playlist (
id TEXT NOT NULL PRIMARY KEY,
name TEXT NOT NULL,
description TEXT,
ispublic BOOLEAN NOT NULL DEFAULT 0,
userid TEXT NOT NULL,
created DATETIME,
updated DATETIME);`,

		`CREATE TABLE IF NOT EXISTS playlist_item (
playlistid TEXT NOT NULL,
videoid TEXT NOT NULL,
title TEXT NOT NULL,
artist TEXT NOT NULL,
thumbnail TEXT,
duration TEXT,
itemorder INTEGER NOT NULL,
timestamp DATETIME,
PRIMARY KEY (playlistid, videoid),
FOREIGN KEY (playlistid) REFERENCES playlist(id) ON DELETE CASCADE);`,

		`CREATE TABLE IF NOT EXISTS profiles (
userid TEXT NOT NULL PRIMARY KEY,
displayname TEXT,
bio TEXT,
tag TEXT,
avatarurl TEXT,
updated DATETIME);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS profiles_tag_idx ON profiles (tag) WHERE tag IS NOT NULL AND tag != '';`,

		`CREATE TABLE IF NOT EXISTS friendships (
id TEXT NOT NULL PRIMARY KEY,
requesterid TEXT NOT NULL,
addresseeid TEXT NOT NULL,
status TEXT NOT NULL,
created DATETIME NOT NULL);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS friendships_pair_idx ON friendships (requesterid, addresseeid);`,

		`CREATE TABLE IF NOT EXISTS chats (
id TEXT NOT NULL PRIMARY KEY,
type TEXT NOT NULL,
name TEXT,
created DATETIME NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS chat_participants (
chatid TEXT NOT NULL,
userid TEXT NOT NULL,
PRIMARY KEY (chatid, userid),
FOREIGN KEY (chatid) REFERENCES chats(id) ON DELETE CASCADE);`,

		`CREATE TABLE IF NOT EXISTS messages (
id TEXT NOT NULL PRIMARY KEY,
chatid TEXT NOT NULL,
senderid TEXT NOT NULL,
content TEXT NOT NULL,
messagetype TEXT NOT NULL,
created DATETIME NOT NULL,
FOREIGN KEY (chatid) REFERENCES chats(id) ON DELETE CASCADE);`,

		`CREATE INDEX IF NOT EXISTS messages_chat_idx ON messages (chatid, created);`,

		`CREATE TABLE IF NOT EXISTS user_preferences (
userid TEXT NOT NULL PRIMARY KEY,
preferredartists TEXT NOT NULL,
isconfigured BOOLEAN NOT NULL,
updated DATETIME);`,

		`CREATE TABLE IF NOT EXISTS downloaded_tracks (
id TEXT NOT NULL PRIMARY KEY,
userid TEXT NOT NULL,
videoid TEXT NOT NULL,
title TEXT NOT NULL,
artist TEXT NOT NULL,
thumbnail TEXT,
duration TEXT,
downloadedat DATETIME NOT NULL);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS downloaded_tracks_idx ON downloaded_tracks (userid, videoid);`,
	}

	for _, query := range schema {
		if _, err := d.Exec(query); err != nil {
			logrus.WithError(err).Error("dbInitSchema failed")
			return err
		}
	}
	return nil
}
