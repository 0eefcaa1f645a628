package model

import (
	"testing"
	"time"
)

func TestPrincipal_WithTokensReturnsNewValue(t *testing.T) {
	exp := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	p := NewPrincipal("user@mail.ru", []string{"ROLE_USER"}, TokenPair{Token: "old", RefreshToken: "r1"}, exp)

	next := p.WithTokens(TokenPair{Token: "new"}, exp.Add(time.Hour))

	if p.Token() != "old" {
		t.Errorf("исходный Principal изменился: token = %q", p.Token())
	}
	if next.Token() != "new" {
		t.Errorf("token = %q, ожидался new", next.Token())
	}
	if next.RefreshToken() != "r1" {
		t.Errorf("refresh token = %q, ожидался прежний r1", next.RefreshToken())
	}
	if next.Email() != "user@mail.ru" || !next.HasRole("ROLE_USER") {
		t.Error("email и роли должны сохраняться")
	}
}

func TestPrincipal_RolesAreCopied(t *testing.T) {
	roles := []string{"ROLE_USER"}
	p := NewPrincipal("a@b.c", roles, TokenPair{Token: "t"}, time.Now())
	roles[0] = "ROLE_SUPER_ADMIN"

	if p.HasRole("ROLE_SUPER_ADMIN") {
		t.Error("изменение исходного среза не должно влиять на Principal")
	}
	got := p.Roles()
	got[0] = "hacked"
	if !p.HasRole("ROLE_USER") {
		t.Error("изменение результата Roles() не должно влиять на Principal")
	}
}

func TestPrincipal_IsExpired(t *testing.T) {
	exp := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	p := NewPrincipal("a@b.c", nil, TokenPair{Token: "t"}, exp)

	if p.IsExpired(exp.Add(-time.Second)) {
		t.Error("токен ещё действителен за секунду до exp")
	}
	if !p.IsExpired(exp) {
		t.Error("токен истёк в момент exp")
	}
	if !p.IsExpired(exp.In(time.FixedZone("MSK", 3*60*60))) {
		t.Error("сравнение должно выполняться в UTC независимо от зоны")
	}
	if Anonymous().IsAuthenticated() {
		t.Error("анонимный Principal не аутентифицирован")
	}
}
