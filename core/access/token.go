package access

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
)

// TokenTTL is how long an issued token stays valid. Expired tokens are
// purged opportunistically on every issue and verify call.
const TokenTTL = 24 * time.Hour

// secretLength is the length of the generated secret in characters.
// 18 random bytes encode to exactly 24 URL-safe characters.
const secretLength = 18

// Token is the credential issued to a school. The secret is returned in
// plaintext exactly once at creation; only its bcrypt hash is stored, so
// it can never be retrieved again.
type Token struct {
	TokenID int64  `json:"token_id"`
	Secret  string `json:"secret"`
}

// IssueToken creates a fresh token for the given school: a random numeric
// token id plus a random 24-character secret. The expired tokens of all
// schools are purged first.
func IssueToken(db *csql.DB, schoolID int64) (Token, error) {
	if err := purgeExpired(db); err != nil {
		return Token{}, err
	}

	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Token{}, errs.Internal("generating token id", err)
	}
	tokenID := int64(binary.BigEndian.Uint32(buf[:]))

	raw := make([]byte, secretLength)
	if _, err := rand.Read(raw); err != nil {
		return Token{}, errs.Internal("generating token secret", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return Token{}, errs.Internal("hashing token secret", err)
	}

	_, err = db.Exec(`INSERT INTO `+db.Schema+`.authentication_tokens (id, hashed_secret, school_id, created_at)
VALUES ($1, $2, $3, $4);`, tokenID, string(hashed), schoolID, time.Now().UTC())
	if err != nil {
		return Token{}, errs.Internal("inserting authentication token", err)
	}
	return Token{TokenID: tokenID, Secret: secret}, nil
}

// VerifyToken checks the presented credential and returns the owning
// school id. It purges expired tokens first, so a token older than the
// TTL can never verify. The token itself stays usable.
func VerifyToken(db *csql.DB, cred Credentials) (int64, error) {
	if err := purgeExpired(db); err != nil {
		return 0, err
	}
	return verify(db, cred)
}

// VerifyAndDeleteToken checks the presented credential and, only on
// success, deletes that specific token. A failed verification leaves the
// token untouched.
func VerifyAndDeleteToken(db *csql.DB, cred Credentials) error {
	if _, err := verify(db, cred); err != nil {
		return err
	}
	res, err := db.Exec(`DELETE FROM `+db.Schema+`.authentication_tokens WHERE id = $1 OR created_at < $2;`,
		cred.TokenID, time.Now().UTC().Add(-TokenTTL))
	if err != nil {
		return errs.Internal("deleting authentication token", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("deleting authentication token", err)
	}
	if count < 1 {
		return errs.Unauthorized()
	}
	return nil
}

func verify(db *csql.DB, cred Credentials) (int64, error) {
	var hashed string
	var schoolID int64
	err := db.QueryRow(`SELECT hashed_secret, school_id FROM `+db.Schema+`.authentication_tokens WHERE id = $1;`,
		cred.TokenID).Scan(&hashed, &schoolID)
	if err == csql.ErrNoRows {
		return 0, errs.Unauthorized()
	}
	if err != nil {
		return 0, errs.Internal("querying authentication token", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(cred.Secret)) != nil {
		return 0, errs.Unauthorized()
	}
	return schoolID, nil
}

func purgeExpired(db *csql.DB) error {
	_, err := db.Exec(`DELETE FROM `+db.Schema+`.authentication_tokens WHERE created_at < $1;`,
		time.Now().UTC().Add(-TokenTTL))
	if err != nil {
		return errs.Internal("purging expired tokens", err)
	}
	return nil
}
