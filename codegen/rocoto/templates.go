package rocoto

import "text/template"

func parse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}

var workflowTmpl = parse("workflow.xml", `<?xml version="1.0"?>
<!DOCTYPE workflow [
  <!ENTITY INSTALL_DIR "{{xml .InstallDir}}">
  <!ENTITY LOG_DIR "{{xml .LogDir}}">
  <!ENTITY ACCOUNT "{{xml .Account}}">
  <!ENTITY SCHEDULER "{{xml .Scheduler}}">
]>
<workflow realtime="F" scheduler="&SCHEDULER;" taskthrottle="20">
  <cycledef group="regression">200001010000 200001010000 01:00:00</cycledef>
  <log verbosity="10"><cyclestr>&LOG_DIR;/{{xml .Name}}_@Y@m@d@H.log</cyclestr></log>
{{- if .Builds}}
  <metatask name="builds">
    <var name="build">{{range $i, $b := .Builds}}{{if $i}} {{end}}{{xml $b.Name}}{{end}}</var>
    <task name="build_#build#" maxtries="1" cycledefs="regression">
      <command>&INSTALL_DIR;/install.sh #build#</command>
      <jobname>build_#build#</jobname>
      <account>&ACCOUNT;</account>
      <walltime>{{.BuildTime}}</walltime>
{{- if .BuildResources}}
      {{.BuildResources}}
{{- end}}
      <join>&LOG_DIR;/build_#build#.log</join>
    </task>
  </metatask>
{{- end}}
{{- range .Tests}}
  <task name="test_{{xml .Name}}" maxtries="{{.MaxTries}}" cycledefs="regression">
    <command>&INSTALL_DIR;/jobs/{{xml .Job}}</command>
    <jobname>test_{{xml .Name}}</jobname>
    <account>&ACCOUNT;</account>
    <walltime>{{.Walltime}}</walltime>
{{- if .Resources}}
    {{.Resources}}
{{- end}}
    <join>&LOG_DIR;/test_{{xml .Name}}.log</join>
{{- if eq (len .Deps) 1}}
    <dependency>
      <taskdep task="{{xml (index .Deps 0)}}"/>
    </dependency>
{{- else if .Deps}}
    <dependency>
      <and>
{{- range .Deps}}
        <taskdep task="{{xml .}}"/>
{{- end}}
      </and>
    </dependency>
{{- end}}
  </task>
{{- end}}
</workflow>
`)

var installTmpl = parse("install.sh", `{{header}}
set -xue
source "$(dirname "$0")/functions.sh"

build="$1"
{{range $i, $b := .Builds -}}
{{if $i}}elif{{else}}if{{end}} [[ "$build" == {{quote $b.Name}} ]] ; then
{{$b.Script}}
{{end -}}
{{if .Builds -}}
else
  echo "unknown build: $build" 1>&2
  exit 1
fi
{{- else -}}
echo "no builds in workflow {{.Name}}" 1>&2
exit 1
{{- end}}
`)

var uninstallTmpl = parse("uninstall.sh", `{{header}}
set -xue

build="$1"
{{range $i, $b := .Builds -}}
{{if $i}}elif{{else}}if{{end}} [[ "$build" == {{quote $b.Name}} ]] ; then
  rm -rf {{quote $b.Target}}
{{end -}}
{{if .Builds -}}
else
  echo "unknown build: $build" 1>&2
  exit 1
fi
{{- else -}}
echo "no builds in workflow {{.Name}}" 1>&2
exit 1
{{- end}}
`)

var jobTmpl = parse("job", `{{header}}
set -xue
export PATH="{{.Path}}"
HOMErt="$(cd "$(dirname "$0")/.." && pwd)"
source "$HOMErt/functions.sh"
source "$HOMErt/scripts/{{.Test.Exec}}"
`)

var execTmpl = parse("exec", `{{header}}
# test {{.Test.Name}}
{{.Test.Script}}
`)
