package stream

import (
	"testing"
)

func TestStreamID_FromString(t *testing.T) {
	tests := []struct {
		name     string
		streamID string
		wantMode Mode
		wantName string
		wantPass string
		wantErr  error
	}{
		{"MissingSlash", "s1", 0, "", "", ErrInvalidSlashes},
		{"MissingName", "publish//s1", 0, "", "", ErrMissingName},
		{"InvalidMode", "foobar/bla", 0, "", "", ErrInvalidMode},
		{"TooManySlashes", "publish/bla//", 0, "", "", ErrInvalidSlashes},
		{"EmptyPass", "publish/s1/", ModePublish, "s1", "", nil},
		{"ValidPass", "publish/s1/secret", ModePublish, "s1", "secret", nil},
		{"ValidPlay", "play/s1", ModePlay, "s1", "", nil},
		{"AccessControlPublish", "#!::r=cam1,m=publish,s=pw", ModePublish, "cam1", "pw", nil},
		{"AccessControlRequest", "#!::m=request,r=cam1", ModePlay, "cam1", "", nil},
		{"AccessControlDefaultMode", "#!::r=cam1", ModePlay, "cam1", "", nil},
		{"AccessControlMissingName", "#!::m=publish", 0, "", "", ErrMissingName},
		{"AccessControlInvalidMode", "#!::r=cam1,m=bidirectional", 0, "", "", ErrInvalidMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var streamid StreamID
			err := streamid.FromString(tt.streamID)
			if err != tt.wantErr {
				t.Fatalf("FromString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if streamid.String() != "" {
					t.Error("str should be empty on failed parse")
				}
				return
			}
			if name := streamid.Name(); name != tt.wantName {
				t.Errorf("Name() = %v, want %v", name, tt.wantName)
			}
			if mode := streamid.Mode(); mode != tt.wantMode {
				t.Errorf("Mode() = %v, want %v", mode, tt.wantMode)
			}
			if password := streamid.Password(); password != tt.wantPass {
				t.Errorf("Password() = %v, want %v", password, tt.wantPass)
			}
			if str := streamid.String(); str != tt.streamID {
				t.Errorf("String() = %v, want %v", str, tt.streamID)
			}
		})
	}
}

func TestNewStreamID(t *testing.T) {
	tests := []struct {
		name         string
		argName      string
		argMode      Mode
		argPassword  string
		wantStreamID string
		wantErr      error
	}{
		{"InvalidMode", "s1", 0, "", "", ErrInvalidMode},
		{"EmptyName", "", ModePublish, "", "", ErrMissingName},
		{"InvalidName", "s1/", ModePublish, "", "", ErrInvalidNamePassword},
		{"InvalidPass", "s1", ModePublish, "foo/bar", "", ErrInvalidNamePassword},
		{"ValidPublish", "s1", ModePublish, "", "publish/s1", nil},
		{"ValidPublishPass", "s1", ModePublish, "foo", "publish/s1/foo", nil},
		{"ValidPlay", "s1", ModePlay, "", "play/s1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewStreamID(tt.argName, tt.argPassword, tt.argMode)
			if err != tt.wantErr {
				t.Fatalf("NewStreamID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if id != nil {
					t.Error("id should be nil on error")
				}
				return
			}
			if got := id.String(); got != tt.wantStreamID {
				t.Errorf("String() = %v, want %v", got, tt.wantStreamID)
			}

			var parsed StreamID
			if err := parsed.FromString(id.String()); err != nil {
				t.Fatal(err)
			}
			if parsed != *id {
				t.Errorf("FromString(String()) = %v, want %v", parsed, *id)
			}
		})
	}
}
