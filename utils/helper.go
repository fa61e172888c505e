package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/trading_backend/config"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// Epsilon is the tolerance used for business comparisons on quantities and
// money amounts (availability checks, paid+pending reconciliation).
var Epsilon = decimal.NewFromFloat(1e-6)

var mutex sync.Mutex

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	num, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return errors.New("invalid phone number format")
	}
	if !libphonenumber.IsValidNumber(num) {
		return errors.New("invalid phone number")
	}
	return nil
}

func ProcessValidationErrors(err error) map[string]string {
	errorsMap := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			fieldName := fieldError.Field()
			errorsMap[fieldName] = fieldError.Tag()
		}
	}
	return errorsMap
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func UniqueSlice[T comparable](slice []T) []T {
	keys := make(map[T]bool)
	list := []T{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	var def T
	if len(defaults) > 0 {
		def = defaults[0]
	}
	return def
}

func NilIfEmpty[T comparable](ptr T) *T {
	var zero T
	if ptr == zero {
		return nil
	}
	return &ptr
}

func ParseDecimal(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// GetTypeName returns the bare struct name of T (no package qualifier).
func GetTypeName[T any]() string {
	var model T
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// GetSequence returns the next document sequence number for model T.
// Redis is an optimization; the DB max() is the source of truth and collisions
// are re-checked against the unique sequence_no column.
func GetSequence[T any](ctx context.Context) (int64, error) {
	var model T
	mutex.Lock()
	defer mutex.Unlock()
	cacheKey := strings.ToLower(GetTypeName[T]()) + "_seq"
	var seqNo int64
	var err error
	db := config.GetDB()

	for {
		seqNo, err = config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// if not found in redis, get from db
		if seqNo <= 1 {
			var dbSeq *int64
			if err := db.WithContext(ctx).Model(&model).Select("max(sequence_no)").
				Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			if dbSeq == nil {
				seqNo = 0
			} else {
				seqNo = *dbSeq
			}
			seqNo++
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return 0, err
			}
		}
		// check if sequence number exists in db
		err = ValidateUnique[T](ctx, "sequence_no", seqNo, 0)
		if err == nil {
			break
		}
	}
	return seqNo, nil
}

// ObtainPostingLock takes a best-effort Redis lock in front of the MySQL
// advisory lock. Reliability must not depend on Redis: callers still hold
// the GET_LOCK inside the posting transaction.
func ObtainPostingLock(ctx context.Context, lockType string, scope string, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis lock not initialized; the advisory lock still serializes posting.
		return nil, nil
	}
	lockKey := fmt.Sprintf("%s:%s", lockType, scope)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock", lockKey, err)
		return nil, errors.New("could not obtain posting lock")
	} else if err != nil {
		// Redis trouble degrades to the advisory lock alone.
		config.LogError(logger, moduleName, functionName, "Error obtaining lock", lockKey, err)
		return nil, nil
	}
	return lock, nil
}

func ReleasePostingLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	_ = lock.Release(ctx)
}
