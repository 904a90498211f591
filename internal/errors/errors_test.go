// SPDX-License-Identifier: AGPL-3.0-only
package errors

import (
	"fmt"
	"testing"
)

func TestNotFound(t *testing.T) {
	err := NotFound("tool server", "warehouse")
	expectedMsg := "resource not found: tool server with ID warehouse"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestAlreadyExists(t *testing.T) {
	err := AlreadyExists("tool", "admin_agent__fetch_products")
	expectedMsg := "resource already exists: tool with ID admin_agent__fetch_products"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestInvalidInput(t *testing.T) {
	reason := "missing message field"
	err := InvalidInput(reason)
	expectedMsg := "invalid input: " + reason
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestUnauthorized(t *testing.T) {
	err := Unauthorized("token expired")
	expectedMsg := "unauthorized: token expired"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestInternal(t *testing.T) {
	originalErr := fmt.Errorf("redis connection refused")
	err := Internal(originalErr)
	expectedMsg := "internal error: redis connection refused"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}
