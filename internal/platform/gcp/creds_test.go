package gcp

import "testing"

func TestClientOptions(t *testing.T) {
	if got := ClientOptions("  "); got != nil {
		t.Fatalf("blank: want=nil got=%v", got)
	}
	if got := ClientOptions(`{"type":"service_account"}`); len(got) != 1 {
		t.Fatalf("inline json: want=1 option got=%d", len(got))
	}
	if got := ClientOptions("/etc/creds.json"); len(got) != 1 {
		t.Fatalf("file: want=1 option got=%d", len(got))
	}
}

func TestProjectIDPrefersGoogleCloudProject(t *testing.T) {
	t.Setenv("GCP_PROJECT", "other")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "babycare-prod")
	if got := ProjectID(); got != "babycare-prod" {
		t.Fatalf("ProjectID: want=babycare-prod got=%q", got)
	}
}
