// Package testutil holds fixtures shared by package tests: the user / role /
// permission schema and an in-memory SQLite database seeded with it.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// RBACSchema declares users bound to roles and roles bound to permissions.
const RBACSchema = `
- _name: user
  _name_descr: User
  id: int
  name: str
  balance: {type: int, output_func: fen2yuan}
  tags: str
- _name: role
  _name_descr: Role
  id: int
  role_name: str
- _name: user_role_bind
  id: int
  user_id: {type: int, relate: user.id}
  role_id: {type: int, relate: role.id}
- _name: perm
  id: int
  perm_name: str
- _name: role_perm_bind
  id: int
  role_id: {type: int, relate: role.id}
  perm_id: {type: int, relate: perm.id}
`

// RBACDDL creates the tables of RBACSchema in SQLite.
const RBACDDL = `
CREATE TABLE user (id INTEGER PRIMARY KEY, name TEXT NOT NULL, balance INTEGER, tags TEXT);
CREATE TABLE role (id INTEGER PRIMARY KEY, role_name TEXT NOT NULL);
CREATE TABLE user_role_bind (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL, role_id INTEGER NOT NULL);
CREATE TABLE perm (id INTEGER PRIMARY KEY, perm_name TEXT NOT NULL);
CREATE TABLE role_perm_bind (id INTEGER PRIMARY KEY, role_id INTEGER NOT NULL, perm_id INTEGER NOT NULL);
`

// RBACSeed fills the RBAC tables:
//
//	alice (1): admin, editor   balance 1050
//	bob   (2): editor          balance 200
//	carol (3): no role         balance NULL
//	dave  (4): admin           balance 0
//
//	admin:  read, write, delete
//	editor: read, write
const RBACSeed = `
INSERT INTO user (id, name, balance, tags) VALUES
  (1, 'alice', 1050, 'a,b'),
  (2, 'bob', 200, ''),
  (3, 'carol', NULL, NULL),
  (4, 'dave', 0, 'x');
INSERT INTO role (id, role_name) VALUES (1, 'admin'), (2, 'editor'), (3, 'guest');
INSERT INTO user_role_bind (id, user_id, role_id) VALUES (1, 1, 1), (2, 1, 2), (3, 2, 2), (4, 4, 1);
INSERT INTO perm (id, perm_name) VALUES (1, 'read'), (2, 'write'), (3, 'delete');
INSERT INTO role_perm_bind (id, role_id, perm_id) VALUES (1, 1, 1), (2, 1, 2), (3, 1, 3), (4, 2, 1), (5, 2, 2);
`

// OpenRBACDB opens an in-memory SQLite database with the RBAC tables created
// and seeded. The database is closed when the test ends.
func OpenRBACDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(RBACDDL)
	require.NoError(t, err)
	_, err = db.Exec(RBACSeed)
	require.NoError(t, err)
	return db
}
