// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package auth

import "time"

// # Credential Lifetimes

const (
	// AccessTokenTTL is the lifetime of issued bearer tokens. Kept short so
	// the revocation registry only has to remember a revoked token briefly.
	AccessTokenTTL = 1 * time.Hour
)

// # Input Limits

const (
	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength = 8

	// NicknameMaxLength caps the display nickname.
	NicknameMaxLength = 64

	// CodeNameMaxLength caps permission and group code names.
	CodeNameMaxLength = 128
)
