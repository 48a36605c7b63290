package configurator

import (
	"context"

	"github.com/openfroyo/projconf/pkg/host"
	"github.com/openfroyo/projconf/pkg/plugins"
)

// configurePublish creates the publish extension ahead of its plugin and
// defers the coordinates until the build script has set the artifact id
// property. The deferred callback is registered before the plugin's own
// validation callback, so it always runs first.
func (c *Configurator) configurePublish(_ context.Context, p *host.Project) error {
	ext, err := host.Create[plugins.JavaArtifactPublishExtension](p.Extensions(), plugins.JavaArtifactPublishExtensionName)
	if err != nil {
		return err
	}

	property := c.defaults.Publish.ArtifactIDProperty
	p.Extra().Set(property, "")

	dev, err := host.ByType[*plugins.PluginDevelopmentExtension](p.Extensions())
	if err != nil {
		return err
	}
	dev.AutomatedPublishing = c.defaults.Publish.AutomatedPublishing

	ext.NexusUser = c.secrets.NexusUser
	ext.NexusPassword = c.secrets.NexusPassword

	groupID := c.defaults.Publish.GroupID
	return p.AfterEvaluate(func(_ context.Context, p *host.Project) error {
		artifactID, err := p.Extra().NonBlankString(property)
		if err != nil {
			return err
		}
		ext.GroupID = groupID
		ext.ArtifactID = artifactID
		p.Logger().Debug().
			Str("group_id", groupID).
			Str("artifact_id", artifactID).
			Msg("Publication coordinates set")
		return nil
	})
}
