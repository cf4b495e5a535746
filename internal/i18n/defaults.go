package i18n

import "golang.org/x/text/language"

// Default holds the labels the built-in entity catalog refers to.
var Default = Translations{
	"basic.Edit":          {language.English: "Edit", language.Chinese: "编辑"},
	"basic.Delete":        {language.English: "Delete", language.Chinese: "删除"},
	"basic.DeleteConfirm": {language.English: "Are you sure you want to delete it?", language.Chinese: "确认删除吗？"},
	"basic.DeleteSuccess": {language.English: "Deleted successfully", language.Chinese: "删除成功"},
	"basic.SaveSuccess":   {language.English: "Saved successfully", language.Chinese: "保存成功"},
	"basic.Status":        {language.English: "Status", language.Chinese: "状态"},
	"basic.Operating":     {language.English: "Operation", language.Chinese: "操作"},
	"basic.Required":      {language.English: "This field is required", language.Chinese: "该字段为必填项"},

	"meta.Group.InlongGroupId":     {language.English: "Group ID", language.Chinese: "数据流组 ID"},
	"meta.Group.Name":              {language.English: "Group name", language.Chinese: "数据流组名称"},
	"meta.Group.MQType":            {language.English: "MQ type", language.Chinese: "消息中间件类型"},
	"meta.Stream.InlongStreamId":   {language.English: "Stream ID", language.Chinese: "数据流 ID"},
	"meta.Stream.Name":             {language.English: "Stream name", language.Chinese: "数据流名称"},
	"meta.Stream.DataEncoding":     {language.English: "Data encoding", language.Chinese: "数据编码"},
	"meta.Stream.DataSeparator":    {language.English: "Data separator", language.Chinese: "源数据字段分割符"},
	"meta.Stream.Fields":           {language.English: "Fields", language.Chinese: "源数据字段"},
	"meta.Sinks.SinkType":          {language.English: "Sink type", language.Chinese: "数据流向类型"},
	"meta.Sinks.SinkName":          {language.English: "Sink name", language.Chinese: "数据流向名称"},
	"meta.Sinks.DataNodeName":      {language.English: "Data node", language.Chinese: "数据节点"},
	"meta.Sinks.EnableCreateResource": {language.English: "Create resource", language.Chinese: "是否创建资源"},
	"meta.Sinks.Hive.DbName":       {language.English: "Database", language.Chinese: "数据库名"},
	"meta.Sinks.Hive.TableName":    {language.English: "Table", language.Chinese: "表名"},
	"meta.Sinks.Kafka.Topic":       {language.English: "Topic", language.Chinese: "Topic"},
	"meta.Sinks.Kafka.Partitions":  {language.English: "Partitions", language.Chinese: "分区数"},
	"meta.Nodes.Type":              {language.English: "Node type", language.Chinese: "节点类型"},
	"meta.Nodes.Name":              {language.English: "Node name", language.Chinese: "节点名称"},
	"meta.Nodes.COS.BucketName":    {language.English: "Bucket name", language.Chinese: "存储桶名称"},
	"meta.Nodes.COS.CredentialsId": {language.English: "Credentials ID", language.Chinese: "凭证 ID"},
	"meta.Nodes.COS.CredentialsKey": {language.English: "Credentials key", language.Chinese: "凭证密钥"},
	"meta.Nodes.COS.Region":        {language.English: "Region", language.Chinese: "地域"},
	"meta.Nodes.MySQL.Url":         {language.English: "JDBC URL", language.Chinese: "JDBC 地址"},
	"meta.Nodes.MySQL.Username":    {language.English: "Username", language.Chinese: "用户名"},
	"meta.Nodes.MySQL.Password":    {language.English: "Password", language.Chinese: "密码"},
	"meta.Consume.ConsumerGroup":   {language.English: "Consumer group", language.Chinese: "消费组"},
	"meta.Consume.InlongGroupId":   {language.English: "Target group", language.Chinese: "消费数据流组"},
	"meta.Consume.InlongStreamId":  {language.English: "Target streams", language.Chinese: "消费数据流"},
	"meta.Consume.FilterEnabled":   {language.English: "Filter by stream", language.Chinese: "过滤消费"},
}
