package platform

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    Platform
		wantErr bool
	}{
		{value: "android", want: Android},
		{value: " iOS ", want: IOS},
		{value: "ANDROID", want: Android},
		{value: "windows", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.value)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("Parse(%q) error = nil, want non-nil", tt.value)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.value, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestParseBuildType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		platform Platform
		value    string
		want     BuildType
		wantErr  bool
	}{
		{platform: Android, value: "debug", want: Debug},
		{platform: Android, value: "Release", want: Release},
		{platform: IOS, value: "app-store", want: AppStore},
		{platform: IOS, value: "ad-hoc", want: AdHoc},
		{platform: IOS, value: "debug", wantErr: true},
		{platform: Android, value: "enterprise", wantErr: true},
		{platform: Platform("web"), value: "debug", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseBuildType(tt.platform, tt.value)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseBuildType(%q, %q) error = nil, want non-nil", tt.platform, tt.value)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseBuildType(%q, %q) error = %v", tt.platform, tt.value, err)
		}
		if got != tt.want {
			t.Fatalf("ParseBuildType(%q, %q) = %q, want %q", tt.platform, tt.value, got, tt.want)
		}
	}
}

func TestBuildTypesReturnsCopy(t *testing.T) {
	t.Parallel()

	types := Android.BuildTypes()
	types[0] = Enterprise
	if !Android.Supports(Debug) {
		t.Fatal("mutating BuildTypes() result changed the platform table")
	}
	if Android.Supports(Enterprise) {
		t.Fatal("android must not support enterprise builds")
	}
}

func TestArtifactExtension(t *testing.T) {
	t.Parallel()

	if got := Android.ArtifactExtension(); got != ".apk" {
		t.Fatalf("Android.ArtifactExtension() = %q, want .apk", got)
	}
	if got := IOS.ArtifactExtension(); got != ".ipa" {
		t.Fatalf("IOS.ArtifactExtension() = %q, want .ipa", got)
	}
}
