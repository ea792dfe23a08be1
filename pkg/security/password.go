package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/garageworks/garage-backend/pkg/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const argonPrefix = "$argon2id$"

var ErrInvalidHash = errors.New("invalid password hash")

// argonHash is the decoded form of
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>.
type argonHash struct {
	memory  uint32
	passes  uint32
	lanes   uint8
	saltLen uint32
	keyLen  uint32
	salt    []byte
	key     []byte
}

func (h argonHash) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s", argonPrefix, argon2.Version,
		h.memory, h.passes, h.lanes,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key))
}

func (h argonHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.passes, h.memory, h.lanes, h.keyLen)
}

// weakerThan reports whether h was produced with cheaper settings than target.
func (h argonHash) weakerThan(target argonHash) bool {
	return h.memory < target.memory || h.passes < target.passes || h.keyLen < target.keyLen || h.saltLen < target.saltLen
}

// HashPassword returns an argon2id hash using cfg's cost settings.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	h := argonFromConfig(cfg)
	h.salt = make([]byte, h.saltLen)
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword checks password against an argon2id hash or a bcrypt hash
// carried over from the previous system.
func VerifyPassword(password, encoded string) (bool, error) {
	if isBcrypt(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
	}
	h, err := parseArgon(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
}

// NeedsRehash is true for bcrypt hashes and for argon2id hashes made with
// weaker settings than cfg; callers re-hash after a successful login.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	if isBcrypt(encoded) {
		return true
	}
	h, err := parseArgon(encoded)
	if err != nil {
		return false
	}
	return h.weakerThan(argonFromConfig(cfg))
}

func isBcrypt(encoded string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}

func argonFromConfig(cfg config.PasswordConfig) argonHash {
	return argonHash{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:  uint32(clamp(cfg.ArgonTime, 1, 10)),
		lanes:   uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func parseArgon(encoded string) (argonHash, error) {
	rest, ok := strings.CutPrefix(encoded, argonPrefix)
	if !ok {
		return argonHash{}, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 || fields[0] != "v="+strconv.Itoa(argon2.Version) {
		return argonHash{}, ErrInvalidHash
	}

	var h argonHash
	for _, setting := range strings.Split(fields[1], ",") {
		name, raw, _ := strings.Cut(setting, "=")
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return argonHash{}, ErrInvalidHash
		}
		switch name {
		case "m":
			h.memory = uint32(v)
		case "t":
			h.passes = uint32(v)
		case "p":
			if v > 255 {
				return argonHash{}, ErrInvalidHash
			}
			h.lanes = uint8(v)
		default:
			return argonHash{}, ErrInvalidHash
		}
	}
	if h.memory == 0 || h.passes == 0 || h.lanes == 0 {
		return argonHash{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[2]); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[3]); err != nil || len(h.key) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	h.saltLen = uint32(len(h.salt))
	h.keyLen = uint32(len(h.key))
	return h, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
