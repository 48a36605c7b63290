package config

import "os"

// Environment variables holding secrets.
const (
	EnvMailUser             = "MAIL_USER"
	EnvMailPassword         = "MAIL_PASSWORD"
	EnvGitPrivateSSHKeyPath = "GIT_PRIVATE_SSH_KEY_PATH"
	EnvBitbucketUser        = "BITBUCKET_USER"
	EnvBitbucketPassword    = "BITBUCKET_PASSWORD"
	EnvNexusUser            = "NEXUS_USER"
	EnvNexusPassword        = "NEXUS_PASSWORD"
)

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// Secrets are credentials read from the environment for one pass. Missing
// values are empty strings; the plugin consuming a value reports it.
type Secrets struct {
	MailUser             string
	MailPassword         string
	GitPrivateSSHKeyPath string
	BitbucketUser        string
	BitbucketPassword    string
	NexusUser            string
	NexusPassword        string
}

// SecretsFromEnvironment reads secrets through lookup. A nil lookup reads
// the process environment.
func SecretsFromEnvironment(lookup LookupFunc) Secrets {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return Secrets{
		MailUser:             get(EnvMailUser),
		MailPassword:         get(EnvMailPassword),
		GitPrivateSSHKeyPath: get(EnvGitPrivateSSHKeyPath),
		BitbucketUser:        get(EnvBitbucketUser),
		BitbucketPassword:    get(EnvBitbucketPassword),
		NexusUser:            get(EnvNexusUser),
		NexusPassword:        get(EnvNexusPassword),
	}
}

// MapLookup returns a LookupFunc backed by m.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// Missing returns the names of the variables that were empty.
func (s Secrets) Missing() []string {
	var out []string
	for _, kv := range []struct {
		key, value string
	}{
		{EnvMailUser, s.MailUser},
		{EnvMailPassword, s.MailPassword},
		{EnvGitPrivateSSHKeyPath, s.GitPrivateSSHKeyPath},
		{EnvBitbucketUser, s.BitbucketUser},
		{EnvBitbucketPassword, s.BitbucketPassword},
		{EnvNexusUser, s.NexusUser},
		{EnvNexusPassword, s.NexusPassword},
	} {
		if kv.value == "" {
			out = append(out, kv.key)
		}
	}
	return out
}
