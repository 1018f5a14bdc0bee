package s3stream

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/ini.v1"
)

// DefaultConfigPath returns ~/.s3stream/credentials, the INI file
// LoadConfigFile reads by default. It mirrors the shared-credentials-file
// convention minio-go's credentials subpackage uses for ~/.aws/credentials,
// generalized to this module's own default section layout.
func DefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".s3stream", "credentials"), nil
}

// LoadConfigFile reads an INI-formatted credentials file and returns the
// ClientConfig for profile. An empty profile reads the keys that appear
// before any section header; a "[default]" header is a named section like
// any other and is read with profile "default". The expected format, for
// profile "default", is:
//
//	[default]
//	endpoint = s3.amazonaws.com
//	access_key = AKIA...
//	secret_key = ...
//	secure = true
func LoadConfigFile(path, profile string) (ClientConfig, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return ClientConfig{}, err
		}
		path = p
	}

	f, err := ini.Load(path)
	if err != nil {
		return ClientConfig{}, err
	}

	var section *ini.Section
	if profile == "" {
		section = f.Section("")
	} else {
		section, err = f.GetSection(profile)
		if err != nil {
			return ClientConfig{}, err
		}
	}

	cfg := ClientConfig{
		Endpoint:  section.Key("endpoint").String(),
		AccessKey: section.Key("access_key").String(),
		SecretKey: section.Key("secret_key").String(),
		AppName:   section.Key("app_name").String(),
	}
	cfg.Secure, _ = section.Key("secure").Bool()
	cfg.Port, _ = section.Key("port").Int()

	if err := cfg.validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}
